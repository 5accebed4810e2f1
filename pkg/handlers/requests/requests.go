package requests

import (
	"fmt"
	"net/http"

	"github.com/chris/ami-command-dispatch/pkg/api"
	"github.com/chris/ami-command-dispatch/pkg/authz"
	"github.com/chris/ami-command-dispatch/pkg/handlers"
	"github.com/chris/ami-command-dispatch/pkg/mapping"
	"github.com/chris/ami-command-dispatch/pkg/scheduler"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RequestsHandler holds the dependencies for command-request handlers.
type RequestsHandler struct {
	Store      storage.ApiStore
	Queue      scheduler.DispatchQueue
	Authorizer authz.Authorizer
	Logger     zerolog.Logger
}

// NewRequestsHandler creates a new RequestsHandler.
func NewRequestsHandler(store storage.ApiStore, queue scheduler.DispatchQueue, authorizer authz.Authorizer, logger zerolog.Logger) *RequestsHandler {
	return &RequestsHandler{Store: store, Queue: queue, Authorizer: authorizer, Logger: logger}
}

// CreateRequest handles the logic for creating a new command request with its
// per-meter items.
func (h *RequestsHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var newReq api.NewCommandRequest
	if err := handlers.DecodeAndValidate(r, &newReq); err != nil {
		handlers.WriteError(w, err)
		return
	}

	created, err := h.Store.CreateRequest(r.Context(), mapping.ToDomainNewRequest(&newReq), newReq.MeterSerials)
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create request")
		handlers.WriteError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, mapping.ToApiRequest(created))
}

// GetRequest handles the logic for retrieving a request by its ID.
func (h *RequestsHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Store.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiRequest(req))
}

// SubmitRequest moves a draft request into the approval pipeline.
func (h *RequestsHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if err := h.Store.SubmitRequest(r.Context(), requestID); err != nil {
		handlers.WriteError(w, err)
		return
	}

	req, err := h.Store.GetRequest(r.Context(), requestID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiRequest(req))
}

// ApproveRequest approves a pending request and enqueues its approved items
// for dispatch.
func (h *RequestsHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var decision api.ApprovalDecision
	if err := handlers.DecodeAndValidate(r, &decision); err != nil {
		handlers.WriteError(w, err)
		return
	}
	if !h.authorize(w, r, decision.ApproverId) {
		return
	}

	requestID := chi.URLParam(r, "id")
	approved, err := h.Store.ApproveRequest(r.Context(), requestID, decision.ApproverId)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	// Enqueue the approved items. A lost enqueue is recovered by
	// reconciliation, which re-enqueues items still sitting in APPROVED.
	if h.Queue != nil {
		for _, item := range approved {
			if err := h.Queue.EnqueueItem(r.Context(), item.Id, 0); err != nil {
				h.Logger.Error().Err(err).Str("item_id", item.Id).Msg("approved item created but failed to enqueue")
			}
		}
	}

	req, err := h.Store.GetRequest(r.Context(), requestID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiRequest(req))
}

// RejectRequest rejects a pending request and cascades the rejection to its
// pending items.
func (h *RequestsHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var decision api.ApprovalDecision
	if err := handlers.DecodeAndValidate(r, &decision); err != nil {
		handlers.WriteError(w, err)
		return
	}
	if !h.authorize(w, r, decision.ApproverId) {
		return
	}

	requestID := chi.URLParam(r, "id")
	if err := h.Store.RejectRequest(r.Context(), requestID, decision.ApproverId, decision.Reason); err != nil {
		handlers.WriteError(w, err)
		return
	}

	req, err := h.Store.GetRequest(r.Context(), requestID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiRequest(req))
}

// ListItems retrieves all items of a request.
func (h *RequestsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if _, err := h.Store.GetRequest(r.Context(), requestID); err != nil {
		handlers.WriteError(w, err)
		return
	}

	items, err := h.Store.ListItemsByRequest(r.Context(), requestID)
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

// authorize checks the approver against the authorization capability and
// writes a 403 when denied.
func (h *RequestsHandler) authorize(w http.ResponseWriter, r *http.Request, approverID string) bool {
	allowed, err := h.Authorizer.CanApprove(r.Context(), approverID)
	if err != nil {
		h.Logger.Error().Err(err).Str("approver_id", approverID).Msg("authorization check failed")
		handlers.WriteError(w, err)
		return false
	}
	if !allowed {
		handlers.WriteJSON(w, http.StatusForbidden, map[string]string{
			"error": fmt.Sprintf("%s is not authorized to decide requests", approverID),
		})
		return false
	}
	return true
}
