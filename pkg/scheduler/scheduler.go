package scheduler

import (
	"context"
	"time"
)

// DispatchQueue defines the interface for handing claimable items to the
// dispatcher workers. The delay is used for retry backoff: a retried item is
// re-enqueued with a growing delay instead of being hammered immediately.
type DispatchQueue interface {
	// EnqueueItem enqueues a command item id for dispatch after the given delay.
	EnqueueItem(ctx context.Context, itemID string, delay time.Duration) error
}
