package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/daramaccoille/crashalert/internal/market"
)

func testSnapshot() *market.Snapshot {
	return &market.Snapshot{
		Values: map[market.Indicator]float64{
			market.IndicatorVIX:           16.45,
			market.IndicatorYieldSpread:   -0.71,
			market.IndicatorLiquidity:     7.5,
			market.IndicatorOneMonthAhead: 3.0,
		},
		RiskLevels: map[market.Indicator]int{market.IndicatorVIX: 0},
		Mode:       market.ModeNeutral,
	}
}

func TestSummarizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{
					{"text": "  Volatility remains low with steady liquidity support. "},
				}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGenerator(Options{APIKey: "key", BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	got := g.Summarize(context.Background(), testSnapshot())
	if got != "Volatility remains low with steady liquidity support." {
		t.Fatalf("unexpected narrative: %q", got)
	}
}

func TestSummarizeMissingKey(t *testing.T) {
	g := NewGenerator(Options{}, zerolog.Nop())
	if got := g.Summarize(context.Background(), testSnapshot()); got != unavailableText {
		t.Fatalf("missing key should yield fixed text, got %q", got)
	}
}

func TestSummarizeAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGenerator(Options{APIKey: "key", BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if got := g.Summarize(context.Background(), testSnapshot()); got != degradedText {
		t.Fatalf("api failure should yield fixed text, got %q", got)
	}
}

func TestSummarizeEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	g := NewGenerator(Options{APIKey: "key", BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if got := g.Summarize(context.Background(), testSnapshot()); got != defaultText {
		t.Fatalf("empty candidates should yield default text, got %q", got)
	}
}
