package chart

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
)

func TestTrendURLEncodesConfig(t *testing.T) {
	history := []float64{480, 490, 500}
	rendered := TrendURL("S&P 500 Trend", history, 515, 525, 475)

	if !strings.HasPrefix(rendered, "https://quickchart.io/chart?c=") {
		t.Fatalf("unexpected url prefix: %s", rendered)
	}

	parsed, err := url.Parse(rendered)
	if err != nil {
		t.Fatalf("url does not parse: %v", err)
	}

	raw := parsed.Query().Get("c")
	var cfg struct {
		Type string `json:"type"`
		Data struct {
			Labels   []string `json:"labels"`
			Datasets []struct {
				Label string     `json:"label"`
				Data  []*float64 `json:"data"`
			} `json:"datasets"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("chart config does not decode: %v", err)
	}

	if cfg.Type != "line" {
		t.Fatalf("chart type = %q, want line", cfg.Type)
	}
	if len(cfg.Data.Labels) != 4 || cfg.Data.Labels[3] != "Tomorrow" {
		t.Fatalf("labels = %v, want 3 history labels plus Tomorrow", cfg.Data.Labels)
	}
	if len(cfg.Data.Datasets) != 4 {
		t.Fatalf("got %d datasets, want history, prediction, and two bounds", len(cfg.Data.Datasets))
	}

	prediction := cfg.Data.Datasets[1]
	if prediction.Data[3] == nil || *prediction.Data[3] != 515 {
		t.Fatalf("prediction slot = %v, want 515", prediction.Data[3])
	}
	if prediction.Data[2] == nil || *prediction.Data[2] != 500 {
		t.Fatalf("prediction anchor = %v, want last close 500", prediction.Data[2])
	}
	if prediction.Data[0] != nil {
		t.Fatal("prediction series should be null before the anchor")
	}
}

func TestTrendURLEmptyHistory(t *testing.T) {
	if got := TrendURL("x", nil, 1, 2, 0); got != "" {
		t.Fatalf("empty history should yield empty url, got %q", got)
	}
}
