package notify

import (
	"strings"
	"testing"

	"github.com/daramaccoille/crashalert/internal/market"
)

func snapshotFixture() *market.Snapshot {
	values := map[market.Indicator]float64{
		market.IndicatorVIX:             16.45,
		market.IndicatorYieldSpread:     -0.71,
		market.IndicatorPERatio:         27.5,
		market.IndicatorJunkBondSpread:  3.5,
		market.IndicatorMarginDebt:      1126.0,
		market.IndicatorInsiderActivity: 0.33,
		market.IndicatorCFNAI:           -0.1,
		market.IndicatorLiquidity:       7.5,
		market.IndicatorOneMonthAhead:   3.0,
	}
	levels := map[market.Indicator]int{
		market.IndicatorVIX:         market.RiskNormal,
		market.IndicatorYieldSpread: market.RiskDanger,
		market.IndicatorPERatio:     market.RiskCaution,
	}
	return &market.Snapshot{
		Values:             values,
		RiskLevels:         levels,
		AggregateRiskScore: 3,
		Mode:               market.ModeBull,
		Sentiment:          "Risk is contained for now.",
	}
}

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"basic":    TierBasic,
		"pro":      TierPro,
		"expert":   TierExpert,
		"advanced": TierExpert,
		"":         TierBasic,
		"platinum": TierBasic,
	}
	for plan, want := range cases {
		if got := ParseTier(plan); got != want {
			t.Fatalf("ParseTier(%q) = %s, want %s", plan, got, want)
		}
	}
}

func TestComposeBasicOmitsProContent(t *testing.T) {
	c := NewComposer("Daily Market Risk Report")
	msg := c.Compose(snapshotFixture(), TierBasic, ChartRefs{})

	if msg.Subject != "Daily Market Risk Report" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "BULL") {
		t.Fatal("basic body should carry the market mode")
	}
	if !strings.Contains(msg.Body, "VIX: 16.45") {
		t.Fatalf("basic body missing VIX value:\n%s", msg.Body)
	}
	if strings.Contains(msg.Body, "Margin Debt") {
		t.Fatal("basic body should not include pro-only metrics")
	}
	if strings.Contains(msg.Body, "Risk is contained") {
		t.Fatal("basic body should not include the AI narrative")
	}
}

func TestComposeProIncludesAllMetrics(t *testing.T) {
	c := NewComposer("")
	msg := c.Compose(snapshotFixture(), TierPro, ChartRefs{})

	for _, name := range market.ScoredIndicators {
		if !strings.Contains(msg.Body, metricLabels[name]) {
			t.Fatalf("pro body missing metric %s", metricLabels[name])
		}
	}
	if !strings.Contains(msg.Body, "Risk is contained for now.") {
		t.Fatal("pro body should include the AI narrative")
	}
	if !strings.Contains(msg.Body, "Yield Spread 10y-2y: -0.71 [DANGER]") {
		t.Fatalf("pro body missing danger marker:\n%s", msg.Body)
	}
}

func TestComposeExpertChartAndHistory(t *testing.T) {
	c := NewComposer("")
	refs := ChartRefs{TrendURL: "https://quickchart.io/chart?c=x", RiskHistory: []int{5, 4, 3}}
	msg := c.Compose(snapshotFixture(), TierExpert, refs)

	if !strings.Contains(msg.Body, refs.TrendURL) {
		t.Fatal("expert body should embed the chart reference")
	}
	if !strings.Contains(msg.Body, "5, 4, 3") {
		t.Fatal("expert body should list the risk score history")
	}
	if !strings.Contains(msg.Body, "Aggregate Risk Score: 3") {
		t.Fatal("expert body should surface the aggregate score")
	}
}

func TestComposeExpertChartPlaceholder(t *testing.T) {
	c := NewComposer("")
	msg := c.Compose(snapshotFixture(), TierExpert, ChartRefs{})
	if !strings.Contains(msg.Body, chartPlaceholder) {
		t.Fatal("missing chart reference should render a placeholder, not fail")
	}
}
