// Package mocks provides hand-maintained testify mocks for the storage
// interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// ApiStore is a mock implementation of storage.ApiStore.
type ApiStore struct {
	mock.Mock
}

func (m *ApiStore) GetRequest(ctx context.Context, requestID string) (*models.CommandRequest, error) {
	args := m.Called(ctx, requestID)
	if req := args.Get(0); req != nil {
		return req.(*models.CommandRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) GetItem(ctx context.Context, itemID string) (*models.CommandItem, error) {
	args := m.Called(ctx, itemID)
	if item := args.Get(0); item != nil {
		return item.(*models.CommandItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) ListItemsByRequest(ctx context.Context, requestID string) ([]models.CommandItem, error) {
	args := m.Called(ctx, requestID)
	if items := args.Get(0); items != nil {
		return items.([]models.CommandItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) ListItemsByState(ctx context.Context, state models.ItemState, limit int32) ([]models.CommandItem, error) {
	args := m.Called(ctx, state, limit)
	if items := args.Get(0); items != nil {
		return items.([]models.CommandItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) ListLogsByItem(ctx context.Context, itemID string) ([]models.CommandLogEntry, error) {
	args := m.Called(ctx, itemID)
	if logs := args.Get(0); logs != nil {
		return logs.([]models.CommandLogEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) CreateRequest(ctx context.Context, req *models.CommandRequest, meterSerials []string) (*models.CommandRequest, error) {
	args := m.Called(ctx, req, meterSerials)
	if created := args.Get(0); created != nil {
		return created.(*models.CommandRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) SubmitRequest(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *ApiStore) ApproveRequest(ctx context.Context, requestID, approverID string) ([]models.CommandItem, error) {
	args := m.Called(ctx, requestID, approverID)
	if items := args.Get(0); items != nil {
		return items.([]models.CommandItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) RejectRequest(ctx context.Context, requestID, approverID, reason string) error {
	args := m.Called(ctx, requestID, approverID, reason)
	return args.Error(0)
}

func (m *ApiStore) RejectItem(ctx context.Context, itemID, approverID, reason string) error {
	args := m.Called(ctx, itemID, approverID, reason)
	return args.Error(0)
}

func (m *ApiStore) CreateBalance(ctx context.Context, consumerID string, opening decimal.Decimal) (*models.PrepaidBalance, error) {
	args := m.Called(ctx, consumerID, opening)
	if balance := args.Get(0); balance != nil {
		return balance.(*models.PrepaidBalance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) GetBalance(ctx context.Context, consumerID string) (*models.PrepaidBalance, error) {
	args := m.Called(ctx, consumerID)
	if balance := args.Get(0); balance != nil {
		return balance.(*models.PrepaidBalance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) RecordLedgerEntry(ctx context.Context, consumerID, meterSerial string, delta decimal.Decimal, reason models.LedgerReason) (*models.PrepaidLedgerEntry, error) {
	args := m.Called(ctx, consumerID, meterSerial, delta, reason)
	if entry := args.Get(0); entry != nil {
		return entry.(*models.PrepaidLedgerEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) ListLedgerEntries(ctx context.Context, consumerID string, limit int32) ([]models.PrepaidLedgerEntry, error) {
	args := m.Called(ctx, consumerID, limit)
	if entries := args.Get(0); entries != nil {
		return entries.([]models.PrepaidLedgerEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) GetMeter(ctx context.Context, serial string) (*models.Meter, error) {
	args := m.Called(ctx, serial)
	if meter := args.Get(0); meter != nil {
		return meter.(*models.Meter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApiStore) PutMeter(ctx context.Context, meter *models.Meter) error {
	args := m.Called(ctx, meter)
	return args.Error(0)
}

// DispatchStore is a mock implementation of storage.DispatchStore.
type DispatchStore struct {
	mock.Mock
}

func (m *DispatchStore) ClaimItem(ctx context.Context, itemID string) (*models.CommandItem, error) {
	args := m.Called(ctx, itemID)
	if item := args.Get(0); item != nil {
		return item.(*models.CommandItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DispatchStore) ClaimNextItems(ctx context.Context, batchSize int32) ([]models.CommandItem, error) {
	args := m.Called(ctx, batchSize)
	if items := args.Get(0); items != nil {
		return items.([]models.CommandItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DispatchStore) RecordOutcome(ctx context.Context, itemID string, status models.LogStatus, message string) error {
	args := m.Called(ctx, itemID, status, message)
	return args.Error(0)
}

func (m *DispatchStore) GetStuckItems(ctx context.Context, maxAge time.Duration) ([]models.CommandItem, error) {
	args := m.Called(ctx, maxAge)
	if items := args.Get(0); items != nil {
		return items.([]models.CommandItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DispatchStore) FinalizeRequest(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *DispatchStore) ListRequestsByState(ctx context.Context, state models.RequestState, limit int32) ([]models.CommandRequest, error) {
	args := m.Called(ctx, state, limit)
	if requests := args.Get(0); requests != nil {
		return requests.([]models.CommandRequest), args.Error(1)
	}
	return nil, args.Error(1)
}
