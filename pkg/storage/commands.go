package storage

import (
	"context"

	"github.com/chris/ami-command-dispatch/pkg/models"
)

// CommandReader defines the interface for reading command requests, items and
// their audit logs.
type CommandReader interface {
	// GetRequest retrieves a command request by its ID.
	GetRequest(ctx context.Context, requestID string) (*models.CommandRequest, error)

	// GetItem retrieves a command item by its ID.
	GetItem(ctx context.Context, itemID string) (*models.CommandItem, error)

	// ListItemsByRequest retrieves all items belonging to a request.
	ListItemsByRequest(ctx context.Context, requestID string) ([]models.CommandItem, error)

	// ListItemsByState retrieves up to limit items in the given state.
	ListItemsByState(ctx context.Context, state models.ItemState, limit int32) ([]models.CommandItem, error)

	// ListLogsByItem retrieves the full audit history of an item in insertion order.
	ListLogsByItem(ctx context.Context, itemID string) ([]models.CommandLogEntry, error)
}

// CommandWriter defines the interface for creating requests and driving the
// approval workflow. All state transitions are conditional writes; callers get
// ErrInvalidState when the request or item is not where the transition requires.
type CommandWriter interface {
	// CreateRequest creates a request in DRAFT state together with one
	// PENDING_APPROVAL item per target meter, atomically. Fails with
	// ErrValidation if meterSerials is empty, contains duplicates, or names a
	// meter that is unknown or inactive.
	CreateRequest(ctx context.Context, req *models.CommandRequest, meterSerials []string) (*models.CommandRequest, error)

	// SubmitRequest moves a request from DRAFT to PENDING_APPROVAL.
	SubmitRequest(ctx context.Context, requestID string) error

	// ApproveRequest moves a request from PENDING_APPROVAL to APPROVED and
	// cascades APPROVED to every item still pending. Items rejected
	// individually beforehand keep their REJECTED state. The approved items
	// are returned so the caller can enqueue them for dispatch.
	ApproveRequest(ctx context.Context, requestID, approverID string) ([]models.CommandItem, error)

	// RejectRequest moves a request from PENDING_APPROVAL to REJECTED and
	// cascades REJECTED to every item still pending.
	RejectRequest(ctx context.Context, requestID, approverID, reason string) error

	// RejectItem rejects a single item while its parent request is still
	// pending, enabling partial approval of the remainder.
	RejectItem(ctx context.Context, itemID, approverID, reason string) error
}

// CommandStore combines the reader and writer interfaces.
type CommandStore interface {
	CommandReader
	CommandWriter
}
