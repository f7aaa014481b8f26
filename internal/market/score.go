package market

// Risk levels assigned to a single indicator.
const (
	RiskNormal  = 0
	RiskCaution = 1
	RiskDanger  = 2
)

// Indicator names one scored market signal.
type Indicator string

const (
	IndicatorVIX             Indicator = "vix"
	IndicatorYieldSpread     Indicator = "yield_spread"
	IndicatorPERatio         Indicator = "sp500_pe"
	IndicatorJunkBondSpread  Indicator = "junk_bond_spread"
	IndicatorMarginDebt      Indicator = "margin_debt"
	IndicatorInsiderActivity Indicator = "insider_activity"
	IndicatorCFNAI           Indicator = "cfnai"
	IndicatorLiquidity       Indicator = "liquidity"
	IndicatorOneMonthAhead   Indicator = "one_month_ahead"
)

// ScoredIndicators lists every indicator carrying a threshold band, in
// presentation order.
var ScoredIndicators = []Indicator{
	IndicatorVIX,
	IndicatorYieldSpread,
	IndicatorPERatio,
	IndicatorJunkBondSpread,
	IndicatorMarginDebt,
	IndicatorInsiderActivity,
	IndicatorCFNAI,
	IndicatorLiquidity,
	IndicatorOneMonthAhead,
}

// Threshold is the fixed scoring band for one indicator. For inverted
// indicators a lower value is worse and the comparisons flip from > to <.
type Threshold struct {
	Low    float64
	High   float64
	Invert bool
}

// Thresholds is the per-indicator scoring table.
var Thresholds = map[Indicator]Threshold{
	IndicatorVIX:             {Low: 20, High: 30},
	IndicatorYieldSpread:     {Low: 0.0, High: -0.5, Invert: true},
	IndicatorPERatio:         {Low: 25, High: 35},
	IndicatorJunkBondSpread:  {Low: 4.0, High: 6.0},
	IndicatorMarginDebt:      {Low: 1000, High: 1500},
	IndicatorInsiderActivity: {Low: 0.5, High: 0.8},
	IndicatorCFNAI:           {Low: -0.7, High: -1.5, Invert: true},
	IndicatorLiquidity:       {Low: 5.0, High: 4.0, Invert: true},
	IndicatorOneMonthAhead:   {Low: 1.0, High: 0, Invert: true},
}

// Score maps a raw indicator value to a risk level. Total over all real
// inputs and monotonic in the direction of the band.
func Score(value, low, high float64, invert bool) int {
	if invert {
		if value < high {
			return RiskDanger
		}
		if value < low {
			return RiskCaution
		}
		return RiskNormal
	}
	if value > high {
		return RiskDanger
	}
	if value > low {
		return RiskCaution
	}
	return RiskNormal
}
