package storage

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daramaccoille/crashalert/internal/market"
)

// SnapshotRecord is the persisted form of one market snapshot. Currency and
// ratio fields carry fixed two-decimal precision; the junk bond spread is
// stored as integer basis points.
type SnapshotRecord struct {
	ID        uuid.UUID
	CreatedAt time.Time

	VIX               decimal.Decimal
	YieldSpread       decimal.Decimal
	SP500PE           decimal.Decimal
	JunkBondSpreadBps int
	MarginDebt        decimal.Decimal
	InsiderActivity   decimal.Decimal
	CFNAI             decimal.Decimal
	Liquidity         decimal.Decimal
	OneMonthAhead     decimal.Decimal

	VIXScore             int
	YieldSpreadScore     int
	SP500PEScore         int
	JunkBondSpreadScore  int
	MarginDebtScore      int
	InsiderActivityScore int
	CFNAIScore           int
	LiquidityScore       int
	OneMonthAheadScore   int
	AggregateRiskScore   int

	MarketMode string
	Sentiment  string

	// Raw is an opaque audit/debug blob carrying the unrounded values,
	// the benchmark series, and fallback accounting.
	Raw json.RawMessage
}

// rawBlob is the forward-compatibility payload stored alongside the fixed
// columns.
type rawBlob struct {
	Values           map[market.Indicator]float64 `json:"values"`
	BenchmarkPrice   float64                      `json:"benchmark_price"`
	BenchmarkHistory []float64                    `json:"benchmark_history,omitempty"`
	FallbackSources  []string                     `json:"fallback_sources,omitempty"`
}

func fixed2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// NewSnapshotRecord converts a snapshot into its persisted form.
func NewSnapshotRecord(snap *market.Snapshot) (SnapshotRecord, error) {
	raw, err := json.Marshal(rawBlob{
		Values:           snap.Values,
		BenchmarkPrice:   snap.BenchmarkPrice,
		BenchmarkHistory: snap.BenchmarkHistory,
		FallbackSources:  snap.FallbackSources,
	})
	if err != nil {
		return SnapshotRecord{}, err
	}

	return SnapshotRecord{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt,

		VIX:               fixed2(snap.Value(market.IndicatorVIX)),
		YieldSpread:       fixed2(snap.Value(market.IndicatorYieldSpread)),
		SP500PE:           fixed2(snap.Value(market.IndicatorPERatio)),
		JunkBondSpreadBps: int(math.Round(snap.Value(market.IndicatorJunkBondSpread) * 100)),
		MarginDebt:        fixed2(snap.Value(market.IndicatorMarginDebt)),
		InsiderActivity:   fixed2(snap.Value(market.IndicatorInsiderActivity)),
		CFNAI:             fixed2(snap.Value(market.IndicatorCFNAI)),
		Liquidity:         fixed2(snap.Value(market.IndicatorLiquidity)),
		OneMonthAhead:     fixed2(snap.Value(market.IndicatorOneMonthAhead)),

		VIXScore:             snap.RiskLevel(market.IndicatorVIX),
		YieldSpreadScore:     snap.RiskLevel(market.IndicatorYieldSpread),
		SP500PEScore:         snap.RiskLevel(market.IndicatorPERatio),
		JunkBondSpreadScore:  snap.RiskLevel(market.IndicatorJunkBondSpread),
		MarginDebtScore:      snap.RiskLevel(market.IndicatorMarginDebt),
		InsiderActivityScore: snap.RiskLevel(market.IndicatorInsiderActivity),
		CFNAIScore:           snap.RiskLevel(market.IndicatorCFNAI),
		LiquidityScore:       snap.RiskLevel(market.IndicatorLiquidity),
		OneMonthAheadScore:   snap.RiskLevel(market.IndicatorOneMonthAhead),
		AggregateRiskScore:   snap.AggregateRiskScore,

		MarketMode: string(snap.Mode),
		Sentiment:  snap.Sentiment,
		Raw:        raw,
	}, nil
}

// Subscriber is one recipient row from the directory.
type Subscriber struct {
	ID        uuid.UUID
	Email     string
	Plan      string
	Active    bool
	CreatedAt time.Time
}
