package mapping

import (
	"github.com/chris/ami-command-dispatch/pkg/api"
	"github.com/chris/ami-command-dispatch/pkg/models"
)

// ToApiRequest converts a domain CommandRequest to its API model.
func ToApiRequest(req *models.CommandRequest) *api.CommandRequest {
	return &api.CommandRequest{
		Id:          req.Id,
		Type:        string(req.Type),
		RequestedBy: req.RequestedBy,
		RequestedAt: req.RequestedAt,
		State:       string(req.State),
		Reason:      req.Reason,
		DecidedBy:   req.DecidedBy,
		UpdatedAt:   req.UpdatedAt,
	}
}

// ToDomainNewRequest converts an API NewCommandRequest to a domain model.
// Server-side fields (id, state, timestamps) are filled in by the store.
func ToDomainNewRequest(newReq *api.NewCommandRequest) *models.CommandRequest {
	return &models.CommandRequest{
		Type:        models.CommandType(newReq.Type),
		RequestedBy: newReq.RequestedBy,
		Reason:      newReq.Reason,
	}
}

// ToApiItem converts a domain CommandItem to its API model.
func ToApiItem(item *models.CommandItem) *api.CommandItem {
	return &api.CommandItem{
		Id:             item.Id,
		RequestId:      item.RequestId,
		MeterSerial:    item.MeterSerial,
		Type:           string(item.Type),
		State:          string(item.State),
		Attempts:       item.Attempts,
		LastError:      item.LastError,
		IdempotencyKey: item.IdempotencyKey,
		UpdatedAt:      item.UpdatedAt,
	}
}

// ToApiLogEntry converts a domain CommandLogEntry to its API model.
func ToApiLogEntry(entry *models.CommandLogEntry) *api.CommandLogEntry {
	return &api.CommandLogEntry{
		EntryId: entry.EntryId,
		ItemId:  entry.ItemId,
		Status:  string(entry.Status),
		At:      entry.At,
		Message: entry.Message,
	}
}

// ToApiBalance converts a domain PrepaidBalance to its API model.
func ToApiBalance(balance *models.PrepaidBalance) *api.Balance {
	return &api.Balance{
		ConsumerId: balance.ConsumerId,
		Balance:    balance.Balance.String(),
		Version:    balance.Version,
		UpdatedAt:  balance.UpdatedAt,
	}
}

// ToApiLedgerEntry converts a domain PrepaidLedgerEntry to its API model.
func ToApiLedgerEntry(entry *models.PrepaidLedgerEntry) *api.LedgerEntry {
	return &api.LedgerEntry{
		EntryId:      entry.EntryId,
		ConsumerId:   entry.ConsumerId,
		MeterSerial:  entry.MeterSerial,
		Delta:        entry.Delta.String(),
		BalanceAfter: entry.BalanceAfter.String(),
		Reason:       string(entry.Reason),
		At:           entry.At,
	}
}
