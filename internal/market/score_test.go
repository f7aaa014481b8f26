package market

import "testing"

func TestScoreBands(t *testing.T) {
	cases := []struct {
		name   string
		value  float64
		low    float64
		high   float64
		invert bool
		want   int
	}{
		{"vix normal", 16.45, 20, 30, false, RiskNormal},
		{"vix caution", 22.0, 20, 30, false, RiskCaution},
		{"vix danger", 31.5, 20, 30, false, RiskDanger},
		{"vix at low boundary", 20.0, 20, 30, false, RiskNormal},
		{"yield spread positive", 0.4, 0.0, -0.5, true, RiskNormal},
		{"yield spread inverted", -0.2, 0.0, -0.5, true, RiskCaution},
		{"yield spread deeply inverted", -0.71, 0.0, -0.5, true, RiskDanger},
		{"liquidity ample", 7.5, 5.0, 4.0, true, RiskNormal},
		{"liquidity draining", 4.5, 5.0, 4.0, true, RiskCaution},
		{"liquidity scarce", 3.8, 5.0, 4.0, true, RiskDanger},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.value, tc.low, tc.high, tc.invert)
			if got != tc.want {
				t.Fatalf("Score(%v, %v, %v, %v) = %d, want %d", tc.value, tc.low, tc.high, tc.invert, got, tc.want)
			}
		})
	}
}

func TestScoreMonotonic(t *testing.T) {
	// Increasing a higher-is-worse value must never decrease its level.
	prev := Score(-100, 20, 30, false)
	for v := -99.0; v <= 100; v++ {
		cur := Score(v, 20, 30, false)
		if cur < prev {
			t.Fatalf("score decreased from %d to %d at value %v", prev, cur, v)
		}
		prev = cur
	}

	// Decreasing an inverted value must never decrease its level.
	prev = Score(100, 0.0, -0.5, true)
	for v := 99.0; v >= -100; v-- {
		cur := Score(v, 0.0, -0.5, true)
		if cur < prev {
			t.Fatalf("inverted score decreased from %d to %d at value %v", prev, cur, v)
		}
		prev = cur
	}
}

func TestThresholdTableCoversScoredIndicators(t *testing.T) {
	for _, name := range ScoredIndicators {
		if _, ok := Thresholds[name]; !ok {
			t.Fatalf("indicator %s has no threshold band", name)
		}
	}
}

func TestScoreValuesSumsLevels(t *testing.T) {
	values := map[Indicator]float64{
		IndicatorVIX:             16.45,
		IndicatorYieldSpread:     -0.71,
		IndicatorPERatio:         27.5,
		IndicatorJunkBondSpread:  3.5,
		IndicatorMarginDebt:      1126.0,
		IndicatorInsiderActivity: 0.33,
		IndicatorCFNAI:           -0.1,
		IndicatorLiquidity:       7.5,
		IndicatorOneMonthAhead:   3.0,
	}

	levels, total, err := scoreValues(values)
	if err != nil {
		t.Fatalf("scoreValues returned error: %v", err)
	}

	if levels[IndicatorYieldSpread] != RiskDanger {
		t.Fatalf("yield spread -0.71 should score danger, got %d", levels[IndicatorYieldSpread])
	}
	if levels[IndicatorPERatio] != RiskCaution {
		t.Fatalf("pe 27.5 should score caution, got %d", levels[IndicatorPERatio])
	}

	sum := 0
	for _, level := range levels {
		sum += level
	}
	if total != sum {
		t.Fatalf("aggregate %d does not match sum of levels %d", total, sum)
	}
}

func TestScoreValuesMissingIndicator(t *testing.T) {
	values := map[Indicator]float64{IndicatorVIX: 16.45}
	if _, _, err := scoreValues(values); err == nil {
		t.Fatal("incomplete value set should be rejected")
	}
}
