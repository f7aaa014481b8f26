package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/daramaccoille/crashalert/internal/market"
)

// DefaultBatchSize bounds peak send concurrency per cycle.
const DefaultBatchSize = 20

// Dispatcher fans a snapshot out to recipients: fixed-size batches, sends
// concurrent within a batch, batches strictly sequential. One failed send
// is counted and logged, never retried, and never stops the run.
type Dispatcher struct {
	mailer    Mailer
	composer  *Composer
	batchSize int
	logger    zerolog.Logger

	// onResult, when set, observes each per-recipient outcome.
	onResult func(succeeded bool)
}

// NewDispatcher constructs a dispatch pipeline.
func NewDispatcher(mailer Mailer, composer *Composer, batchSize int, logger zerolog.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{
		mailer:    mailer,
		composer:  composer,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// OnResult registers a hook invoked once per recipient send.
func (d *Dispatcher) OnResult(fn func(succeeded bool)) {
	d.onResult = fn
}

// Dispatch sends the cycle's notifications. The returned tally always
// satisfies Sent+Failed == len(recipients).
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []Recipient, snap *market.Snapshot, refs ChartRefs) Outcome {
	outcome := Outcome{}
	total := len(recipients)
	if total == 0 {
		return outcome
	}

	batches := (total + d.batchSize - 1) / d.batchSize
	for start := 0; start < total; start += d.batchSize {
		end := start + d.batchSize
		if end > total {
			end = total
		}
		batch := recipients[start:end]

		d.logger.Info().
			Int("batch", start/d.batchSize+1).
			Int("batches", batches).
			Int("size", len(batch)).
			Msg("dispatching batch")

		results := make([]bool, len(batch))
		var wg sync.WaitGroup
		for i, recipient := range batch {
			wg.Add(1)
			go func(i int, recipient Recipient) {
				defer wg.Done()
				msg := d.composer.Compose(snap, recipient.Tier, refs)
				if err := d.mailer.Send(ctx, recipient.Address, msg); err != nil {
					d.logger.Error().Err(err).
						Str("recipient", recipient.Address).
						Str("tier", string(recipient.Tier)).
						Msg("send failed")
					return
				}
				results[i] = true
			}(i, recipient)
		}
		wg.Wait()

		for _, ok := range results {
			if ok {
				outcome.Sent++
			} else {
				outcome.Failed++
			}
			if d.onResult != nil {
				d.onResult(ok)
			}
		}
	}

	d.logger.Info().Int("sent", outcome.Sent).Int("failed", outcome.Failed).Msg("dispatch complete")
	return outcome
}
