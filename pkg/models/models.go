package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommandType defines the kinds of commands that can be issued against a meter.
type CommandType string

const (
	CONNECT     CommandType = "CONNECT"
	DISCONNECT  CommandType = "DISCONNECT"
	PING        CommandType = "PING"
	RELAYSTATUS CommandType = "RELAY_STATUS"
)

// RequestState defines the possible states of a command request.
type RequestState string

const (
	REQUEST_DRAFT            RequestState = "DRAFT"
	REQUEST_PENDING_APPROVAL RequestState = "PENDING_APPROVAL"
	REQUEST_APPROVED         RequestState = "APPROVED"
	REQUEST_REJECTED         RequestState = "REJECTED"
	REQUEST_DISPATCHED       RequestState = "DISPATCHED"
)

// ItemState defines the possible states of a single per-meter command item.
type ItemState string

const (
	ITEM_PENDING_APPROVAL ItemState = "PENDING_APPROVAL"
	ITEM_APPROVED         ItemState = "APPROVED"
	ITEM_REJECTED         ItemState = "REJECTED"
	ITEM_DISPATCHED       ItemState = "DISPATCHED"
	ITEM_ACKED            ItemState = "ACKED"
	ITEM_FAILED           ItemState = "FAILED"
	ITEM_DLQ              ItemState = "DLQ"
)

// LogStatus defines the outcome recorded by a single command log row.
type LogStatus string

const (
	LOG_DISPATCHED   LogStatus = "DISPATCHED"
	LOG_ACKED        LogStatus = "ACKED"
	LOG_FAILED       LogStatus = "FAILED"
	LOG_RETRIED      LogStatus = "RETRIED"
	LOG_MOVED_TO_DLQ LogStatus = "MOVED_TO_DLQ"
)

// MeterStatus defines the lifecycle status of a meter in the registry.
type MeterStatus string

const (
	METER_ACTIVE   MeterStatus = "ACTIVE"
	METER_INACTIVE MeterStatus = "INACTIVE"
)

// LedgerReason defines why a prepaid balance changed.
type LedgerReason string

const (
	LEDGER_CONSUMPTION LedgerReason = "CONSUMPTION"
	LEDGER_RECHARGE    LedgerReason = "RECHARGE"
	LEDGER_ADJUSTMENT  LedgerReason = "ADJUSTMENT"
)

// CommandRequest represents the internal domain model for a command request.
// It includes dynamodbav tags for marshalling.
type CommandRequest struct {
	Id          string       `json:"id" dynamodbav:"id"`
	Type        CommandType  `json:"type" dynamodbav:"type"`
	RequestedBy string       `json:"requested_by" dynamodbav:"requested_by"`
	RequestedAt time.Time    `json:"requested_at" dynamodbav:"requested_at"`
	State       RequestState `json:"state" dynamodbav:"state"`
	Reason      string       `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	DecidedBy   string       `json:"decided_by,omitempty" dynamodbav:"decided_by,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at" dynamodbav:"updated_at"`
}

// CommandItem represents one target meter of a command request.
type CommandItem struct {
	Id             string      `json:"id" dynamodbav:"id"`
	RequestId      string      `json:"request_id" dynamodbav:"request_id"`
	MeterSerial    string      `json:"meter_serial" dynamodbav:"meter_serial"`
	Type           CommandType `json:"type" dynamodbav:"type"`
	State          ItemState   `json:"state" dynamodbav:"state"`
	Attempts       int         `json:"attempts" dynamodbav:"attempts"`
	LastError      string      `json:"last_error,omitempty" dynamodbav:"last_error,omitempty"`
	IdempotencyKey string      `json:"idempotency_key" dynamodbav:"idempotency_key"`
	UpdatedAt      time.Time   `json:"updated_at" dynamodbav:"updated_at"`
}

// CommandLogEntry is one append-only audit row for a command item.
// Entry ids are ULIDs, so sorting by entry id gives insertion order.
type CommandLogEntry struct {
	ItemId  string    `json:"item_id" dynamodbav:"item_id"`
	EntryId string    `json:"entry_id" dynamodbav:"entry_id"`
	Status  LogStatus `json:"status" dynamodbav:"status"`
	At      time.Time `json:"at" dynamodbav:"at"`
	Message string    `json:"message,omitempty" dynamodbav:"message,omitempty"`
}

// Meter represents an entry in the external meter registry.
type Meter struct {
	Serial     string      `json:"serial" dynamodbav:"serial"`
	ConsumerId string      `json:"consumer_id,omitempty" dynamodbav:"consumer_id,omitempty"`
	Status     MeterStatus `json:"status" dynamodbav:"status"`
}

// PrepaidBalance is the mutable current-value projection of a consumer's
// prepaid ledger. Version is bumped on every update for optimistic locking.
type PrepaidBalance struct {
	ConsumerId string          `json:"consumer_id"`
	Balance    decimal.Decimal `json:"balance_amount"`
	Version    int64           `json:"version"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PrepaidLedgerEntry is one append-only delta against a consumer's balance.
// BalanceAfter snapshots the projection at the moment the entry was applied.
type PrepaidLedgerEntry struct {
	EntryId      string          `json:"entry_id"`
	ConsumerId   string          `json:"consumer_id"`
	MeterSerial  string          `json:"meter_serial,omitempty"`
	Delta        decimal.Decimal `json:"delta_amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       LedgerReason    `json:"reason"`
	At           time.Time       `json:"at"`
}
