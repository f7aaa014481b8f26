package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/daramaccoille/crashalert/internal/market"
)

func TestNewSnapshotRecord(t *testing.T) {
	snap := &market.Snapshot{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Values: map[market.Indicator]float64{
			market.IndicatorVIX:             16.4567,
			market.IndicatorYieldSpread:     -0.71,
			market.IndicatorPERatio:         27.5,
			market.IndicatorJunkBondSpread:  3.456,
			market.IndicatorMarginDebt:      1126.0,
			market.IndicatorInsiderActivity: 0.33,
			market.IndicatorCFNAI:           -0.1,
			market.IndicatorLiquidity:       7.512345,
			market.IndicatorOneMonthAhead:   3.0,
		},
		RiskLevels: map[market.Indicator]int{
			market.IndicatorYieldSpread: market.RiskDanger,
		},
		AggregateRiskScore: 2,
		Mode:               market.ModeNeutral,
		Sentiment:          "steady",
		BenchmarkPrice:     500,
		FallbackSources:    []string{market.SourceVIX},
	}

	record, err := NewSnapshotRecord(snap)
	if err != nil {
		t.Fatalf("NewSnapshotRecord returned error: %v", err)
	}

	if got := record.VIX.String(); got != "16.46" {
		t.Fatalf("vix = %s, want 16.46 (two decimals)", got)
	}
	if got := record.Liquidity.String(); got != "7.51" {
		t.Fatalf("liquidity = %s, want 7.51", got)
	}
	if record.JunkBondSpreadBps != 346 {
		t.Fatalf("junk bond spread = %d bps, want 346", record.JunkBondSpreadBps)
	}
	if record.YieldSpreadScore != market.RiskDanger {
		t.Fatalf("yield spread score = %d, want %d", record.YieldSpreadScore, market.RiskDanger)
	}
	if record.MarketMode != "NEUTRAL" {
		t.Fatalf("market mode = %q", record.MarketMode)
	}

	var blob struct {
		Values          map[string]float64 `json:"values"`
		FallbackSources []string           `json:"fallback_sources"`
	}
	if err := json.Unmarshal(record.Raw, &blob); err != nil {
		t.Fatalf("raw blob does not decode: %v", err)
	}
	if blob.Values["vix"] != 16.4567 {
		t.Fatalf("raw blob should keep unrounded values, got %v", blob.Values["vix"])
	}
	if len(blob.FallbackSources) != 1 {
		t.Fatalf("raw blob fallback sources = %v", blob.FallbackSources)
	}
}
