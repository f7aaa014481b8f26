package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/daramaccoille/crashalert/internal/chart"
	"github.com/daramaccoille/crashalert/internal/config"
	"github.com/daramaccoille/crashalert/internal/market"
	"github.com/daramaccoille/crashalert/internal/metrics"
	"github.com/daramaccoille/crashalert/internal/notify"
	"github.com/daramaccoille/crashalert/internal/scheduler"
	"github.com/daramaccoille/crashalert/internal/storage"
)

// chartHistoryPoints is how many recent benchmark closes feed the forecast
// chart, and riskHistoryLimit how many past cycles feed the expert risk
// trail.
const (
	chartHistoryPoints = 30
	riskHistoryLimit   = 10
)

// Summarizer produces the optional narrative attached to a snapshot.
type Summarizer interface {
	Summarize(ctx context.Context, snap *market.Snapshot) string
}

// Service orchestrates one aggregation cycle: collect, score, persist,
// compose, dispatch.
type Service struct {
	scheduler  *scheduler.Scheduler
	collector  *market.Collector
	summarizer Summarizer
	snapshots  storage.SnapshotStore
	directory  storage.SubscriberDirectory
	dispatcher *notify.Dispatcher
	composer   *notify.Composer
	mailer     notify.Mailer
	meters     *metrics.Metrics
	logger     zerolog.Logger

	benchmarkLabel string
	adminAddress   string
	locker         storage.AdvisoryLocker
	lockKey        int64
}

// Deps bundles the service collaborators.
type Deps struct {
	Scheduler  *scheduler.Scheduler
	Collector  *market.Collector
	Summarizer Summarizer
	Snapshots  storage.SnapshotStore
	Directory  storage.SubscriberDirectory
	Dispatcher *notify.Dispatcher
	Composer   *notify.Composer
	Mailer     notify.Mailer
	Metrics    *metrics.Metrics
}

// New constructs the cycle service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Service {
	svc := &Service{
		scheduler:      deps.Scheduler,
		collector:      deps.Collector,
		summarizer:     deps.Summarizer,
		snapshots:      deps.Snapshots,
		directory:      deps.Directory,
		dispatcher:     deps.Dispatcher,
		composer:       deps.Composer,
		mailer:         deps.Mailer,
		meters:         deps.Metrics,
		logger:         logger.With().Str("component", "service").Logger(),
		benchmarkLabel: "S&P 500 Trend",
		adminAddress:   cfg.Email.AdminAddress,
		lockKey:        cfg.Scheduler.AdvisoryLockKey,
	}

	if locker, ok := deps.Snapshots.(storage.AdvisoryLocker); ok {
		svc.locker = locker
	}

	if deps.Metrics != nil && deps.Collector != nil {
		deps.Collector.OnFallback(deps.Metrics.SourceFallback)
	}
	if deps.Metrics != nil && deps.Dispatcher != nil {
		deps.Dispatcher.OnResult(deps.Metrics.SendResult)
	}

	return svc
}

// Run begins the scheduled cycle loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes one scheduled cycle, guarded by the advisory lock
// so concurrent replicas do not double-send.
func (s *Service) ProcessCycle(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", bucket).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	if err := s.executeCycle(ctx); err != nil {
		if s.meters != nil {
			s.meters.CycleResult(false)
		}
		return err
	}
	if s.meters != nil {
		s.meters.CycleResult(true)
	}
	return nil
}

func (s *Service) executeCycle(ctx context.Context) error {
	snap, err := s.collectAndPersist(ctx)
	if err != nil {
		return err
	}

	subscribers, err := s.directory.ListActiveSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("list active subscribers: %w", err)
	}
	s.logger.Info().Int("count", len(subscribers)).Msg("active subscribers loaded")

	recipients := make([]notify.Recipient, 0, len(subscribers))
	for _, sub := range subscribers {
		recipients = append(recipients, notify.Recipient{
			ID:      sub.ID.String(),
			Address: sub.Email,
			Tier:    notify.ParseTier(sub.Plan),
		})
	}

	refs := s.buildChartRefs(ctx, snap)
	outcome := s.dispatcher.Dispatch(ctx, recipients, snap, refs)

	s.logger.Info().
		Int("sent", outcome.Sent).
		Int("failed", outcome.Failed).
		Str("mode", string(snap.Mode)).
		Int("aggregate_risk_score", snap.AggregateRiskScore).
		Msg("cycle complete")
	return nil
}

// collectAndPersist runs the aggregation and writes the snapshot. A write
// failure is fatal: no notifications go out against an unpersisted
// snapshot.
func (s *Service) collectAndPersist(ctx context.Context) (*market.Snapshot, error) {
	snap, err := s.collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect market snapshot: %w", err)
	}

	if s.summarizer != nil {
		snap.Sentiment = s.summarizer.Summarize(ctx, snap)
	}

	record, err := storage.NewSnapshotRecord(snap)
	if err != nil {
		return nil, fmt.Errorf("build snapshot record: %w", err)
	}
	if err := s.snapshots.InsertSnapshot(ctx, record); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	return snap, nil
}

// buildChartRefs precomputes the expert chart reference and risk history.
// Both are best effort: a missing series or store error degrades to empty
// refs, and the composer renders placeholders.
func (s *Service) buildChartRefs(ctx context.Context, snap *market.Snapshot) notify.ChartRefs {
	refs := notify.ChartRefs{}

	if len(snap.BenchmarkHistory) > 0 {
		recent := snap.BenchmarkHistory
		if len(recent) > chartHistoryPoints {
			recent = recent[:chartHistoryPoints]
		}
		// Reverse the newest-first series so the chart reads left to right.
		oldestFirst := make([]float64, len(recent))
		for i, v := range recent {
			oldestFirst[len(recent)-1-i] = v
		}

		last := oldestFirst[len(oldestFirst)-1]
		prediction := last * (1 + snap.Value(market.IndicatorOneMonthAhead)/100)
		refs.TrendURL = chart.TrendURL(s.benchmarkLabel, oldestFirst, prediction, last*1.05, last*0.95)
	} else {
		s.logger.Warn().Msg("no benchmark history, skipping forecast chart")
	}

	if s.snapshots != nil {
		records, err := s.snapshots.ListRecentSnapshots(ctx, riskHistoryLimit)
		if err != nil {
			s.logger.Warn().Err(err).Msg("risk history unavailable")
		} else {
			history := make([]int, 0, len(records))
			for _, record := range records {
				history = append(history, record.AggregateRiskScore)
			}
			refs.RiskHistory = history
		}
	}

	return refs
}

// Trigger runs one cycle on demand: collect, persist, then a per-tier test
// send to the admin address instead of the full recipient fan-out.
func (s *Service) Trigger(ctx context.Context) (*market.Snapshot, notify.Outcome, error) {
	snap, err := s.collectAndPersist(ctx)
	if err != nil {
		return nil, notify.Outcome{}, err
	}

	outcome := notify.Outcome{}
	if s.adminAddress == "" {
		s.logger.Warn().Msg("admin address not configured, skipping test sends")
		return snap, outcome, nil
	}

	refs := s.buildChartRefs(ctx, snap)
	for _, tier := range []notify.Tier{notify.TierBasic, notify.TierPro, notify.TierExpert} {
		msg := s.composer.Compose(snap, tier, refs)
		if err := s.mailer.Send(ctx, s.adminAddress, msg); err != nil {
			s.logger.Error().Err(err).Str("tier", string(tier)).Msg("test send failed")
			outcome.Failed++
			continue
		}
		outcome.Sent++
	}

	return snap, outcome, nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
