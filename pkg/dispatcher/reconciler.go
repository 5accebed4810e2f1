package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/scheduler"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/rs/zerolog"
)

// Reconciler sweeps up after dead dispatcher workers and closes out finished
// requests. It runs on a schedule, not in the hot path.
type Reconciler struct {
	Store  storage.DispatchStore
	Queue  scheduler.DispatchQueue
	Logger zerolog.Logger

	// StuckAge is how long an item may sit in DISPATCHED state before its
	// claim is considered abandoned.
	StuckAge time.Duration

	// RetryLimit mirrors the dispatcher's limit: an abandoned claim counts
	// as a failed attempt.
	RetryLimit int
}

// ReleaseStuckItems returns abandoned claims to the APPROVED state and
// re-enqueues them, or dead-letters items already at the attempt limit.
func (r *Reconciler) ReleaseStuckItems(ctx context.Context) error {
	stuck, err := r.Store.GetStuckItems(ctx, r.StuckAge)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		r.Logger.Info().Msg("no stuck items found")
		return nil
	}

	r.Logger.Info().Int("count", len(stuck)).Msg("releasing stuck items")
	for _, item := range stuck {
		status := models.LOG_RETRIED
		if item.Attempts >= r.RetryLimit {
			status = models.LOG_MOVED_TO_DLQ
		}

		if err := r.Store.RecordOutcome(ctx, item.Id, status, "dispatch claim abandoned"); err != nil {
			if errors.Is(err, storage.ErrInvalidState) {
				// A worker finished with the item between the query and now.
				continue
			}
			r.Logger.Error().Err(err).Str("item_id", item.Id).Msg("failed to release stuck item")
			continue
		}

		if status == models.LOG_RETRIED && r.Queue != nil {
			if err := r.Queue.EnqueueItem(ctx, item.Id, 0); err != nil {
				r.Logger.Error().Err(err).Str("item_id", item.Id).Msg("failed to re-enqueue released item")
			}
		}
	}
	return nil
}

// FinalizeRequests flips APPROVED requests whose items have all left the
// approval pipeline to DISPATCHED. Requests with items still in flight are
// left alone.
func (r *Reconciler) FinalizeRequests(ctx context.Context) error {
	requests, err := r.Store.ListRequestsByState(ctx, models.REQUEST_APPROVED, 0)
	if err != nil {
		return err
	}

	for _, req := range requests {
		if err := r.Store.FinalizeRequest(ctx, req.Id); err != nil {
			if errors.Is(err, storage.ErrInvalidState) {
				continue
			}
			r.Logger.Error().Err(err).Str("request_id", req.Id).Msg("failed to finalize request")
		}
	}
	return nil
}

// Run performs one full reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.ReleaseStuckItems(ctx); err != nil {
		return err
	}
	return r.FinalizeRequests(ctx)
}
