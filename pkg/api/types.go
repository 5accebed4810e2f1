// Package api defines the request and response types of the HTTP surface.
package api

import "time"

// NewCommandRequest is the body for creating a command request.
type NewCommandRequest struct {
	Type         string   `json:"type" validate:"required,oneof=CONNECT DISCONNECT PING RELAY_STATUS"`
	RequestedBy  string   `json:"requested_by" validate:"required"`
	Reason       string   `json:"reason,omitempty"`
	MeterSerials []string `json:"meter_serials" validate:"required,min=1,dive,required"`
}

// CommandRequest is the API representation of a command request.
type CommandRequest struct {
	Id          string    `json:"id"`
	Type        string    `json:"type"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
	State       string    `json:"state"`
	Reason      string    `json:"reason,omitempty"`
	DecidedBy   string    `json:"decided_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommandItem is the API representation of a command item.
type CommandItem struct {
	Id             string    `json:"id"`
	RequestId      string    `json:"request_id"`
	MeterSerial    string    `json:"meter_serial"`
	Type           string    `json:"type"`
	State          string    `json:"state"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CommandLogEntry is the API representation of one audit row.
type CommandLogEntry struct {
	EntryId string    `json:"entry_id"`
	ItemId  string    `json:"item_id"`
	Status  string    `json:"status"`
	At      time.Time `json:"at"`
	Message string    `json:"message,omitempty"`
}

// ApprovalDecision is the body for approving or rejecting a request or item.
type ApprovalDecision struct {
	ApproverId string `json:"approver_id" validate:"required"`
	Reason     string `json:"reason,omitempty"`
}

// NewBalance is the body for opening a prepaid balance.
type NewBalance struct {
	OpeningBalance string `json:"opening_balance" validate:"required"`
}

// Balance is the API representation of a prepaid balance projection.
type Balance struct {
	ConsumerId string    `json:"consumer_id"`
	Balance    string    `json:"balance_amount"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewLedgerEntry is the body for recording a balance change.
type NewLedgerEntry struct {
	MeterSerial string `json:"meter_serial,omitempty"`
	Delta       string `json:"delta_amount" validate:"required"`
	Reason      string `json:"reason" validate:"required,oneof=CONSUMPTION RECHARGE ADJUSTMENT"`
}

// LedgerEntry is the API representation of one ledger row.
type LedgerEntry struct {
	EntryId      string    `json:"entry_id"`
	ConsumerId   string    `json:"consumer_id"`
	MeterSerial  string    `json:"meter_serial,omitempty"`
	Delta        string    `json:"delta_amount"`
	BalanceAfter string    `json:"balance_after"`
	Reason       string    `json:"reason"`
	At           time.Time `json:"at"`
}
