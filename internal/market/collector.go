package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Source identifiers used for fallback accounting and logging.
const (
	SourceVIX              = "fred:VIXCLS"
	SourceLongYield        = "fred:DGS10"
	SourceShortYield       = "fred:DGS2"
	SourceJunkSpread       = "fred:BAMLH0A0HYM2"
	SourceCFNAI            = "fred:CFNAI"
	SourceLiquidity        = "fred:WALCL"
	SourceOneMonthAhead    = "fred:JLNUM1M"
	SourceValuation        = "scrape:sp500-pe"
	SourceMarginDebt       = "manual:margin-debt"
	SourceInsiderActivity  = "manual:insider-activity"
	SourceBenchmarkQuote   = "alphavantage:quote"
	SourceBenchmarkHistory = "alphavantage:daily"
)

// millionsPerTrillion converts FRED WALCL (reported in millions of dollars)
// to trillions for scoring and display.
const millionsPerTrillion = 1_000_000

// SourceFunc fetches a single numeric indicator value.
type SourceFunc func(ctx context.Context) (float64, error)

// SeriesFunc fetches a numeric time series, newest first.
type SeriesFunc func(ctx context.Context) ([]float64, error)

// StaticSource returns a SourceFunc that always yields value. Used for
// manual-override indicators that have no clean API.
func StaticSource(value float64) SourceFunc {
	return func(context.Context) (float64, error) {
		return value, nil
	}
}

// Sources bundles every upstream call one aggregation cycle issues.
type Sources struct {
	VIX             SourceFunc
	LongYield       SourceFunc
	ShortYield      SourceFunc
	JunkSpread      SourceFunc
	CFNAI           SourceFunc
	LiquidityMM     SourceFunc // millions of dollars
	OneMonthAhead   SourceFunc
	Valuation       SourceFunc
	MarginDebt      SourceFunc
	InsiderActivity SourceFunc

	BenchmarkQuote   SourceFunc
	BenchmarkHistory SeriesFunc
}

// Fallbacks carries the per-source default applied when a call fails. The
// values mirror long-run typical readings so a dead source degrades the
// snapshot rather than distorting it.
type Fallbacks struct {
	VIX             float64
	LongYield       float64
	ShortYield      float64
	JunkSpread      float64
	CFNAI           float64
	LiquidityMM     float64
	OneMonthAhead   float64
	Valuation       float64
	MarginDebt      float64
	InsiderActivity float64
	BenchmarkQuote  float64
}

// DefaultFallbacks returns the standard per-source default table.
func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		VIX:             16.5,
		LongYield:       4.0,
		ShortYield:      4.2,
		JunkSpread:      3.5,
		CFNAI:           -0.1,
		LiquidityMM:     7_500_000,
		OneMonthAhead:   3.0,
		Valuation:       29.5,
		MarginDebt:      1126.0,
		InsiderActivity: 0.33,
		BenchmarkQuote:  500,
	}
}

// Collector fans out to every indicator source concurrently and folds the
// results into one Snapshot. A failing source contributes its fallback and
// never aborts the cycle; only a scoring invariant violation does.
type Collector struct {
	sources   Sources
	fallbacks Fallbacks
	logger    zerolog.Logger

	// onFallback, when set, observes each source that fell back.
	onFallback func(sourceID string)
}

// NewCollector constructs the indicator aggregator.
func NewCollector(sources Sources, fallbacks Fallbacks, logger zerolog.Logger) *Collector {
	return &Collector{
		sources:   sources,
		fallbacks: fallbacks,
		logger:    logger.With().Str("component", "collector").Logger(),
	}
}

// OnFallback registers a hook invoked once per source that used its
// fallback value during a cycle.
func (c *Collector) OnFallback(fn func(sourceID string)) {
	c.onFallback = fn
}

// keyedSource pairs a source id with its call and fallback.
type keyedSource struct {
	id       string
	fetch    SourceFunc
	fallback float64
}

// reading is the per-source outcome, combined by key rather than arrival
// order.
type reading struct {
	id       string
	value    float64
	fallback bool
}

// Collect runs one aggregation cycle. It returns an error only when the
// scoring step itself fails.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	scalars := []keyedSource{
		{SourceVIX, c.sources.VIX, c.fallbacks.VIX},
		{SourceLongYield, c.sources.LongYield, c.fallbacks.LongYield},
		{SourceShortYield, c.sources.ShortYield, c.fallbacks.ShortYield},
		{SourceJunkSpread, c.sources.JunkSpread, c.fallbacks.JunkSpread},
		{SourceCFNAI, c.sources.CFNAI, c.fallbacks.CFNAI},
		{SourceLiquidity, c.sources.LiquidityMM, c.fallbacks.LiquidityMM},
		{SourceOneMonthAhead, c.sources.OneMonthAhead, c.fallbacks.OneMonthAhead},
		{SourceValuation, c.sources.Valuation, c.fallbacks.Valuation},
		{SourceMarginDebt, c.sources.MarginDebt, c.fallbacks.MarginDebt},
		{SourceInsiderActivity, c.sources.InsiderActivity, c.fallbacks.InsiderActivity},
		{SourceBenchmarkQuote, c.sources.BenchmarkQuote, c.fallbacks.BenchmarkQuote},
	}

	readings := make(chan reading, len(scalars))
	var wg sync.WaitGroup

	for _, src := range scalars {
		wg.Add(1)
		go func(src keyedSource) {
			defer wg.Done()
			readings <- c.fetchScalar(ctx, src)
		}(src)
	}

	var history []float64
	wg.Add(1)
	go func() {
		defer wg.Done()
		history = c.fetchHistory(ctx)
	}()

	wg.Wait()
	close(readings)

	byID := make(map[string]float64, len(scalars))
	var fellBack []string
	for r := range readings {
		byID[r.id] = r.value
		if r.fallback {
			fellBack = append(fellBack, r.id)
		}
	}
	sort.Strings(fellBack)

	values := map[Indicator]float64{
		IndicatorVIX:             byID[SourceVIX],
		IndicatorYieldSpread:     byID[SourceLongYield] - byID[SourceShortYield],
		IndicatorPERatio:         byID[SourceValuation],
		IndicatorJunkBondSpread:  byID[SourceJunkSpread],
		IndicatorMarginDebt:      byID[SourceMarginDebt],
		IndicatorInsiderActivity: byID[SourceInsiderActivity],
		IndicatorCFNAI:           byID[SourceCFNAI],
		IndicatorLiquidity:       byID[SourceLiquidity] / millionsPerTrillion,
		IndicatorOneMonthAhead:   byID[SourceOneMonthAhead],
	}

	levels, total, err := scoreValues(values)
	if err != nil {
		return nil, err
	}

	price := byID[SourceBenchmarkQuote]
	snapshot := &Snapshot{
		ID:                 uuid.New(),
		CreatedAt:          time.Now().UTC(),
		Values:             values,
		RiskLevels:         levels,
		AggregateRiskScore: total,
		Mode:               ClassifyMode(price, history),
		BenchmarkPrice:     price,
		BenchmarkHistory:   history,
		FallbackSources:    fellBack,
	}

	c.logger.Info().
		Str("mode", string(snapshot.Mode)).
		Int("aggregate_risk_score", total).
		Int("fallback_sources", len(fellBack)).
		Msg("market snapshot collected")

	return snapshot, nil
}

func (c *Collector) fetchScalar(ctx context.Context, src keyedSource) reading {
	if src.fetch == nil {
		return reading{id: src.id, value: src.fallback, fallback: true}
	}
	value, err := src.fetch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("source", src.id).
			Float64("fallback", src.fallback).
			Msg("source unavailable, using fallback")
		if c.onFallback != nil {
			c.onFallback(src.id)
		}
		return reading{id: src.id, value: src.fallback, fallback: true}
	}
	return reading{id: src.id, value: value}
}

func (c *Collector) fetchHistory(ctx context.Context) []float64 {
	if c.sources.BenchmarkHistory == nil {
		return nil
	}
	history, err := c.sources.BenchmarkHistory(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("source", SourceBenchmarkHistory).
			Msg("benchmark history unavailable, trend mode will be neutral")
		if c.onFallback != nil {
			c.onFallback(SourceBenchmarkHistory)
		}
		return nil
	}
	return history
}
