package storage

import (
	"context"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/models"
)

// DispatchStore defines the privileged interface used by dispatcher workers.
// Claims are exclusive: a conditional update that only one claimant can win,
// so no two workers ever process the same item concurrently.
type DispatchStore interface {
	// ClaimItem atomically moves an APPROVED item to DISPATCHED, increments
	// its attempt counter and appends a DISPATCHED log row, then returns the
	// claimed item. Returns ErrItemNotClaimable when the conditional update
	// loses, which callers treat as "someone else has it" and skip.
	ClaimItem(ctx context.Context, itemID string) (*models.CommandItem, error)

	// ClaimNextItems claims up to batchSize APPROVED items for this worker.
	// Items whose claim loses the race are silently skipped.
	ClaimNextItems(ctx context.Context, batchSize int32) ([]models.CommandItem, error)

	// RecordOutcome appends a log row for the item and applies the state
	// transition the outcome implies, in one atomic unit. Both succeed or
	// both fail; the audit trail never lags the item's state.
	RecordOutcome(ctx context.Context, itemID string, status models.LogStatus, message string) error

	// GetStuckItems retrieves items that have sat in DISPATCHED state for
	// longer than maxAge, i.e. claimed by a worker that died mid-flight.
	GetStuckItems(ctx context.Context, maxAge time.Duration) ([]models.CommandItem, error)

	// FinalizeRequest moves an APPROVED request to DISPATCHED once no item of
	// the request remains in PENDING_APPROVAL or APPROVED state. Returns
	// ErrInvalidState when items are still in flight.
	FinalizeRequest(ctx context.Context, requestID string) error

	// ListRequestsByState retrieves up to limit requests in the given state.
	ListRequestsByState(ctx context.Context, state models.RequestState, limit int32) ([]models.CommandRequest, error)
}
