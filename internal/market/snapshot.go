package market

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode is the coarse market trend classification.
type Mode string

const (
	ModeBull    Mode = "BULL"
	ModeBear    Mode = "BEAR"
	ModeNeutral Mode = "NEUTRAL"
)

// Snapshot is one immutable aggregation-cycle record: raw indicator values,
// their risk levels, the summed risk score, and the derived market mode.
type Snapshot struct {
	ID        uuid.UUID
	CreatedAt time.Time

	Values             map[Indicator]float64
	RiskLevels         map[Indicator]int
	AggregateRiskScore int

	Mode      Mode
	Sentiment string

	// BenchmarkPrice and BenchmarkHistory (newest first) back the trend
	// classification and expert charting; history may be empty.
	BenchmarkPrice   float64
	BenchmarkHistory []float64

	// FallbackSources lists source ids whose value came from the fallback
	// table rather than a live call. Kept for the audit blob only.
	FallbackSources []string
}

// Value returns one indicator value, or 0 when absent.
func (s *Snapshot) Value(name Indicator) float64 {
	return s.Values[name]
}

// RiskLevel returns one indicator risk level, or 0 when absent.
func (s *Snapshot) RiskLevel(name Indicator) int {
	return s.RiskLevels[name]
}

// scoreValues applies the threshold table to a value set and returns the
// per-indicator levels plus their sum. A value with no threshold entry is an
// invariant violation and aborts the cycle before anything is persisted.
func scoreValues(values map[Indicator]float64) (map[Indicator]int, int, error) {
	levels := make(map[Indicator]int, len(values))
	total := 0
	for _, name := range ScoredIndicators {
		value, ok := values[name]
		if !ok {
			return nil, 0, fmt.Errorf("indicator %s missing from value set", name)
		}
		band, ok := Thresholds[name]
		if !ok {
			return nil, 0, fmt.Errorf("indicator %s has no threshold band", name)
		}
		level := Score(value, band.Low, band.High, band.Invert)
		levels[name] = level
		total += level
	}
	if len(values) != len(ScoredIndicators) {
		return nil, 0, fmt.Errorf("value set has %d indicators, want %d", len(values), len(ScoredIndicators))
	}
	return levels, total, nil
}
