package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/daramaccoille/crashalert/internal/market"
)

// Fallback narratives. The generator never fails a cycle; it degrades to a
// fixed sentence instead.
const (
	unavailableText = "Market sentiment analysis currently unavailable."
	degradedText    = "Market data processing complete."
	defaultText     = "Market conditions are stable."
)

// Options parameterise the AI narrative generator.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Generator produces a one-sentence market narrative from a snapshot via
// the Gemini generateContent API.
type Generator struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewGenerator constructs a sentiment generator.
func NewGenerator(opts Options, logger zerolog.Logger) *Generator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}

	return &Generator{
		opts:    opts,
		logger:  logger.With().Str("component", "sentiment").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Summarize returns a short narrative for the snapshot. On any failure a
// fixed fallback sentence is returned; the error never propagates.
func (g *Generator) Summarize(ctx context.Context, snap *market.Snapshot) string {
	if g.opts.APIKey == "" {
		g.logger.Warn().Msg("sentiment api key missing, skipping narrative")
		return unavailableText
	}

	prompt := buildPrompt(snap)
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return degradedText
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.opts.Model, g.opts.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return degradedText
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn().Err(err).Msg("sentiment request failed")
		return degradedText
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn().Int("status", resp.StatusCode).Msg("sentiment api error")
		return degradedText
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return degradedText
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return defaultText
	}

	text := strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return defaultText
	}
	return text
}

func buildPrompt(snap *market.Snapshot) string {
	b := strings.Builder{}
	b.WriteString("Analyze the following market metrics and generate a concise, professional 1-sentence market sentiment summary (max 20 words).\n")
	b.WriteString("Focus on risk level and trend.\n\n")
	b.WriteString("Metrics:\n")
	fmt.Fprintf(&b, "- VIX: %.2f (Score: %d)\n", snap.Value(market.IndicatorVIX), snap.RiskLevel(market.IndicatorVIX))
	fmt.Fprintf(&b, "- Yield Spread: %.2f\n", snap.Value(market.IndicatorYieldSpread))
	fmt.Fprintf(&b, "- Liquidity: %.2fT\n", snap.Value(market.IndicatorLiquidity))
	fmt.Fprintf(&b, "- Market Mode: %s\n", snap.Mode)
	fmt.Fprintf(&b, "- One Month Ahead Forecast: %.2f\n", snap.Value(market.IndicatorOneMonthAhead))
	return b.String()
}
