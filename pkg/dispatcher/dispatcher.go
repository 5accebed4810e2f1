// Package dispatcher drains approved command items, sends them to the meter
// communication channel and records the outcome. Multiple dispatcher workers
// may run concurrently; exclusivity is guaranteed by the store's conditional
// claim, not by anything in this package.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/events"
	"github.com/chris/ami-command-dispatch/pkg/meters"
	"github.com/chris/ami-command-dispatch/pkg/metrics"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/scheduler"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Dispatcher processes claimed command items. Queue may be nil on the polling
// path, where retried items are simply picked up by a later poll instead of
// being re-enqueued with a delay.
type Dispatcher struct {
	Store     storage.DispatchStore
	Channel   meters.Channel
	Queue     scheduler.DispatchQueue
	Publisher events.Publisher
	Metrics   *metrics.DispatcherMetrics
	Logger    zerolog.Logger

	// RetryLimit is the attempt count at which a failing item is moved to
	// the dead-letter state instead of being retried.
	RetryLimit int

	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration

	// Polling loop tuning, used by Run only.
	BatchSize    int32
	PollInterval time.Duration
	Workers      int
}

// ProcessItem claims the item and processes it. A claim lost to another
// worker is not an error; the item is simply skipped.
func (d *Dispatcher) ProcessItem(ctx context.Context, itemID string) error {
	item, err := d.Store.ClaimItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotClaimable) {
			d.Logger.Debug().Str("item_id", itemID).Msg("item not claimable, skipping")
			return nil
		}
		return fmt.Errorf("failed to claim item %s: %w", itemID, err)
	}
	return d.ProcessClaimed(ctx, item)
}

// ProcessClaimed sends a claimed item to the meter channel and records the
// outcome. The caller must hold the claim: the item must be in DISPATCHED
// state with the attempt already counted.
func (d *Dispatcher) ProcessClaimed(ctx context.Context, item *models.CommandItem) error {
	start := time.Now()
	outcome, err := d.Channel.Send(ctx, item.MeterSerial, item.Type, item.IdempotencyKey)
	d.Metrics.ObserveSendDuration(time.Since(start))
	if err != nil {
		// A transport error is indistinguishable from a lost command; treat
		// it like a timeout so the retry path owns it.
		d.Logger.Warn().Err(err).Str("item_id", item.Id).Msg("meter channel send failed")
		outcome = meters.TIMEOUT
	}
	d.Metrics.IncAttempt(string(outcome))

	switch outcome {
	case meters.ACK:
		return d.recordAndPublish(ctx, item, models.LOG_ACKED, models.ITEM_ACKED, "")
	case meters.NACK:
		return d.handleFailure(ctx, item, "NACK from meter")
	default:
		return d.handleFailure(ctx, item, "timed out waiting for meter")
	}
}

// handleFailure retries the item or dead-letters it once the attempt limit is
// reached. One item's failure never halts the dispatcher.
func (d *Dispatcher) handleFailure(ctx context.Context, item *models.CommandItem, message string) error {
	if item.Attempts < d.RetryLimit {
		if err := d.recordAndPublish(ctx, item, models.LOG_RETRIED, models.ITEM_APPROVED, message); err != nil {
			return err
		}
		if d.Queue != nil {
			if err := d.Queue.EnqueueItem(ctx, item.Id, d.backoff(item.Attempts)); err != nil {
				// The item is back in APPROVED state, so reconciliation will
				// re-enqueue it even if this send is lost.
				d.Logger.Error().Err(err).Str("item_id", item.Id).Msg("failed to re-enqueue retried item")
			}
		}
		return nil
	}

	d.Metrics.IncDlq()
	d.Logger.Warn().
		Str("item_id", item.Id).
		Str("meter_serial", item.MeterSerial).
		Int("attempts", item.Attempts).
		Msg("item moved to dead-letter state")
	return d.recordAndPublish(ctx, item, models.LOG_MOVED_TO_DLQ, models.ITEM_DLQ, message)
}

// recordAndPublish records the outcome and emits a best-effort item update
// event reflecting the new state.
func (d *Dispatcher) recordAndPublish(ctx context.Context, item *models.CommandItem, status models.LogStatus, newState models.ItemState, message string) error {
	if err := d.Store.RecordOutcome(ctx, item.Id, status, message); err != nil {
		return fmt.Errorf("failed to record %s outcome for item %s: %w", status, item.Id, err)
	}

	if d.Publisher != nil {
		msg := events.Message{
			Type: events.MessageTypeItemUpdate,
			Payload: events.ItemUpdatePayload{
				ItemID:      item.Id,
				RequestID:   item.RequestId,
				MeterSerial: item.MeterSerial,
				State:       newState,
				Attempts:    item.Attempts,
				LastError:   message,
			},
		}
		if err := d.Publisher.Publish(ctx, msg); err != nil {
			d.Logger.Error().Err(err).Str("item_id", item.Id).Msg("failed to publish item update event")
		}
	}
	return nil
}

// backoff returns the retry delay for the given attempt count, doubling per
// attempt from BackoffBase.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.BackoffBase
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}

// Run polls for claimable items with a pool of workers until the context is
// cancelled. Workers claim independently; the store's conditional claim keeps
// them from colliding.
func (d *Dispatcher) Run(ctx context.Context) error {
	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			logger := d.Logger.With().Int("worker", worker).Logger()
			for {
				claimed, err := d.Store.ClaimNextItems(ctx, d.BatchSize)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					logger.Error().Err(err).Msg("failed to claim items")
				}
				for i := range claimed {
					if err := d.ProcessClaimed(ctx, &claimed[i]); err != nil {
						logger.Error().Err(err).Str("item_id", claimed[i].Id).Msg("failed to process item")
					}
				}

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(d.PollInterval):
				}
			}
		})
	}
	return g.Wait()
}
