package storage

import (
	"context"

	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/shopspring/decimal"
)

// PrepaidStore defines the interface for the prepaid ledger and its balance
// projection. The ledger is append-only; the balance row is the only mutable
// state and is guarded by an optimistic version.
type PrepaidStore interface {
	// CreateBalance opens a balance row for a consumer with an opening amount.
	CreateBalance(ctx context.Context, consumerID string, opening decimal.Decimal) (*models.PrepaidBalance, error)

	// GetBalance retrieves a consumer's current balance projection.
	GetBalance(ctx context.Context, consumerID string) (*models.PrepaidBalance, error)

	// RecordLedgerEntry atomically appends a ledger row carrying the
	// post-application balance snapshot and updates the balance projection by
	// delta. Fails with ErrConcurrentModification when a concurrent update
	// raced; the caller should retry the whole operation.
	RecordLedgerEntry(ctx context.Context, consumerID, meterSerial string, delta decimal.Decimal, reason models.LedgerReason) (*models.PrepaidLedgerEntry, error)

	// ListLedgerEntries retrieves the most recent ledger entries for a consumer.
	ListLedgerEntries(ctx context.Context, consumerID string, limit int32) ([]models.PrepaidLedgerEntry, error)
}
