package items

import (
	"fmt"
	"net/http"

	"github.com/chris/ami-command-dispatch/pkg/api"
	"github.com/chris/ami-command-dispatch/pkg/authz"
	"github.com/chris/ami-command-dispatch/pkg/handlers"
	"github.com/chris/ami-command-dispatch/pkg/mapping"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ItemsHandler holds the dependencies for command-item handlers.
type ItemsHandler struct {
	Store      storage.ApiStore
	Authorizer authz.Authorizer
	Logger     zerolog.Logger
}

// NewItemsHandler creates a new ItemsHandler.
func NewItemsHandler(store storage.ApiStore, authorizer authz.Authorizer, logger zerolog.Logger) *ItemsHandler {
	return &ItemsHandler{Store: store, Authorizer: authorizer, Logger: logger}
}

// GetItem handles the logic for retrieving an item by its ID.
func (h *ItemsHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiItem(item))
}

// ListByState retrieves items in the state given by the query parameter.
func (h *ItemsHandler) ListByState(w http.ResponseWriter, r *http.Request) {
	state := models.ItemState(r.URL.Query().Get("state"))
	switch state {
	case models.ITEM_PENDING_APPROVAL, models.ITEM_APPROVED, models.ITEM_REJECTED,
		models.ITEM_DISPATCHED, models.ITEM_ACKED, models.ITEM_FAILED, models.ITEM_DLQ:
	default:
		handlers.WriteError(w, fmt.Errorf("%w: unknown item state %q", storage.ErrValidation, state))
		return
	}

	items, err := h.Store.ListItemsByState(r.Context(), state, 0)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	apiItems := make([]*api.CommandItem, len(items))
	for i := range items {
		apiItems[i] = mapping.ToApiItem(&items[i])
	}
	handlers.WriteJSON(w, http.StatusOK, apiItems)
}

// ListLogs retrieves the full audit history of an item.
func (h *ItemsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if _, err := h.Store.GetItem(r.Context(), itemID); err != nil {
		handlers.WriteError(w, err)
		return
	}

	logs, err := h.Store.ListLogsByItem(r.Context(), itemID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	apiLogs := make([]*api.CommandLogEntry, len(logs))
	for i := range logs {
		apiLogs[i] = mapping.ToApiLogEntry(&logs[i])
	}
	handlers.WriteJSON(w, http.StatusOK, apiLogs)
}

// RejectItem rejects a single pending item, enabling partial approval of the
// parent request.
func (h *ItemsHandler) RejectItem(w http.ResponseWriter, r *http.Request) {
	var decision api.ApprovalDecision
	if err := handlers.DecodeAndValidate(r, &decision); err != nil {
		handlers.WriteError(w, err)
		return
	}

	allowed, err := h.Authorizer.CanApprove(r.Context(), decision.ApproverId)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	if !allowed {
		handlers.WriteJSON(w, http.StatusForbidden, map[string]string{
			"error": fmt.Sprintf("%s is not authorized to decide items", decision.ApproverId),
		})
		return
	}

	itemID := chi.URLParam(r, "id")
	if err := h.Store.RejectItem(r.Context(), itemID, decision.ApproverId, decision.Reason); err != nil {
		handlers.WriteError(w, err)
		return
	}

	item, err := h.Store.GetItem(r.Context(), itemID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiItem(item))
}
