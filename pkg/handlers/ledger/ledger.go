package ledger

import (
	"fmt"
	"net/http"

	"github.com/chris/ami-command-dispatch/pkg/api"
	"github.com/chris/ami-command-dispatch/pkg/handlers"
	"github.com/chris/ami-command-dispatch/pkg/mapping"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerHandler holds the dependencies for prepaid ledger handlers.
type LedgerHandler struct {
	Store  storage.PrepaidStore
	Logger zerolog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(store storage.PrepaidStore, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{Store: store, Logger: logger}
}

// CreateBalance opens a prepaid balance for a consumer.
func (h *LedgerHandler) CreateBalance(w http.ResponseWriter, r *http.Request) {
	var newBalance api.NewBalance
	if err := handlers.DecodeAndValidate(r, &newBalance); err != nil {
		handlers.WriteError(w, err)
		return
	}

	opening, err := decimal.NewFromString(newBalance.OpeningBalance)
	if err != nil {
		handlers.WriteError(w, fmt.Errorf("%w: invalid opening balance: %v", storage.ErrValidation, err))
		return
	}

	balance, err := h.Store.CreateBalance(r.Context(), chi.URLParam(r, "id"), opening)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, mapping.ToApiBalance(balance))
}

// GetBalance retrieves a consumer's current balance.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Store.GetBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiBalance(balance))
}

// RecordEntry appends a ledger entry and moves the balance. On a concurrent
// modification the store surfaces a conflict for the caller to retry.
func (h *LedgerHandler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	var newEntry api.NewLedgerEntry
	if err := handlers.DecodeAndValidate(r, &newEntry); err != nil {
		handlers.WriteError(w, err)
		return
	}

	delta, err := decimal.NewFromString(newEntry.Delta)
	if err != nil {
		handlers.WriteError(w, fmt.Errorf("%w: invalid delta amount: %v", storage.ErrValidation, err))
		return
	}

	entry, err := h.Store.RecordLedgerEntry(
		r.Context(),
		chi.URLParam(r, "id"),
		newEntry.MeterSerial,
		delta,
		models.LedgerReason(newEntry.Reason),
	)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, mapping.ToApiLedgerEntry(entry))
}

// ListEntries retrieves the most recent ledger entries for a consumer.
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.ListLedgerEntries(r.Context(), chi.URLParam(r, "id"), 100)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	apiEntries := make([]*api.LedgerEntry, len(entries))
	for i := range entries {
		apiEntries[i] = mapping.ToApiLedgerEntry(&entries[i])
	}
	handlers.WriteJSON(w, http.StatusOK, apiEntries)
}
