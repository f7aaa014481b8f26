package notify

import (
	"fmt"
	"strings"

	"github.com/daramaccoille/crashalert/internal/market"
)

// ChartRefs carries precomputed references for the expert variant: an
// opaque chart URL from the external render service and a rolling history
// of aggregate risk scores, newest first.
type ChartRefs struct {
	TrendURL    string
	RiskHistory []int
}

// Message is one rendered notification.
type Message struct {
	Subject string
	Body    string
}

// metricLabels maps indicators to their display names.
var metricLabels = map[market.Indicator]string{
	market.IndicatorVIX:             "VIX",
	market.IndicatorYieldSpread:     "Yield Spread 10y-2y",
	market.IndicatorPERatio:         "S&P 500 P/E",
	market.IndicatorJunkBondSpread:  "Junk Bond Spread",
	market.IndicatorMarginDebt:      "Margin Debt",
	market.IndicatorInsiderActivity: "Insider Activity",
	market.IndicatorCFNAI:           "CFNAI",
	market.IndicatorLiquidity:       "Market Liquidity",
	market.IndicatorOneMonthAhead:   "1-Month Forecast Signal",
}

// metricInfo is the one-line explainer shown under each metric.
var metricInfo = map[market.Indicator]string{
	market.IndicatorVIX:             "Expected volatility. >20 signals fear.",
	market.IndicatorYieldSpread:     "Recession indicator. Inversion (<0) is bearish.",
	market.IndicatorPERatio:         "Valuation check. >25 is expensive.",
	market.IndicatorJunkBondSpread:  "Credit stress. Spikes signal danger.",
	market.IndicatorMarginDebt:      "Speculative leverage. High is risky.",
	market.IndicatorInsiderActivity: "Smart money flow. High selling is bearish.",
	market.IndicatorCFNAI:           "Economic growth. <-0.70 signals recession.",
	market.IndicatorLiquidity:       "Fuel for markets. Trends matter.",
	market.IndicatorOneMonthAhead:   "Proprietary short-term model.",
}

const chartPlaceholder = "[forecast chart unavailable this cycle]"

// Composer renders tier-differentiated notification bodies. It is pure:
// all inputs arrive as arguments and no I/O happens here.
type Composer struct {
	subject      string
	dashboardURL string
}

// NewComposer constructs a composer. subject is the shared email subject.
func NewComposer(subject string) *Composer {
	if subject == "" {
		subject = "Daily Market Risk Report"
	}
	return &Composer{
		subject:      subject,
		dashboardURL: "https://crashalert.online/dashboard",
	}
}

// Compose renders the content variant for one tier.
func (c *Composer) Compose(snap *market.Snapshot, tier Tier, refs ChartRefs) Message {
	var body string
	switch tier {
	case TierExpert:
		body = c.expertBody(snap, refs)
	case TierPro:
		body = c.proBody(snap)
	default:
		body = c.basicBody(snap)
	}
	return Message{Subject: c.subject, Body: body}
}

func riskWord(level int) string {
	switch level {
	case market.RiskDanger:
		return "DANGER"
	case market.RiskCaution:
		return "CAUTION"
	default:
		return "OK"
	}
}

func (c *Composer) writeMetric(b *strings.Builder, snap *market.Snapshot, name market.Indicator) {
	label := metricLabels[name]
	value := snap.Value(name)

	display := fmt.Sprintf("%.2f", value)
	switch name {
	case market.IndicatorLiquidity:
		display = fmt.Sprintf("$%.2fT", value)
	case market.IndicatorJunkBondSpread:
		display = fmt.Sprintf("%.2f%%", value)
	}

	fmt.Fprintf(b, "%s: %s [%s]\n", label, display, riskWord(snap.RiskLevel(name)))
	if info := metricInfo[name]; info != "" {
		fmt.Fprintf(b, "  %s\n", info)
	}
}

func (c *Composer) basicBody(snap *market.Snapshot) string {
	b := strings.Builder{}
	b.WriteString("CRASH ALERT - Basic Market Snapshot\n\n")
	fmt.Fprintf(&b, "Current Market Status: %s\n\n", snap.Mode)

	b.WriteString("Key Indicators\n")
	c.writeMetric(&b, snap, market.IndicatorVIX)
	c.writeMetric(&b, snap, market.IndicatorYieldSpread)
	c.writeMetric(&b, snap, market.IndicatorLiquidity)

	b.WriteString("\nUnlock Pro insights: 6 more key indicators, AI analysis, and trend forecasts.\n")
	fmt.Fprintf(&b, "Upgrade at %s\n", c.dashboardURL)
	return b.String()
}

func (c *Composer) proBody(snap *market.Snapshot) string {
	b := strings.Builder{}
	b.WriteString("CRASH ALERT - Pro Market Intelligence\n\n")
	fmt.Fprintf(&b, "Market Risk Assessment: %s\n", snap.Mode)
	fmt.Fprintf(&b, "Aggregate Risk Score: %d\n\n", snap.AggregateRiskScore)

	if snap.Sentiment != "" {
		fmt.Fprintf(&b, "AI Analyst Insight: %q\n\n", snap.Sentiment)
	}

	b.WriteString("Risk Dashboard\n")
	for _, name := range market.ScoredIndicators {
		c.writeMetric(&b, snap, name)
	}

	fmt.Fprintf(&b, "\nManage your subscription at %s\n", c.dashboardURL)
	return b.String()
}

func (c *Composer) expertBody(snap *market.Snapshot, refs ChartRefs) string {
	b := strings.Builder{}
	b.WriteString("CRASH ALERT - Expert Market Intelligence\n\n")
	fmt.Fprintf(&b, "Market Status: %s | Aggregate Risk Score: %d\n\n", snap.Mode, snap.AggregateRiskScore)

	if snap.Sentiment != "" {
		fmt.Fprintf(&b, "Strategic AI Analysis: %q\n\n", snap.Sentiment)
	}

	b.WriteString("Market Forecast Chart\n")
	if refs.TrendURL != "" {
		fmt.Fprintf(&b, "%s\n\n", refs.TrendURL)
	} else {
		fmt.Fprintf(&b, "%s\n\n", chartPlaceholder)
	}

	if len(refs.RiskHistory) > 0 {
		b.WriteString("Risk Score History (newest first): ")
		for i, score := range refs.RiskHistory {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", score)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("Deep Dive Metrics\n")
	for _, name := range market.ScoredIndicators {
		c.writeMetric(&b, snap, name)
	}

	fmt.Fprintf(&b, "\nManage your subscription at %s\n", c.dashboardURL)
	return b.String()
}
