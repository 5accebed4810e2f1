package items

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris/ami-command-dispatch/pkg/api"
	"github.com/chris/ami-command-dispatch/pkg/authz"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	storage_mocks "github.com/chris/ami-command-dispatch/pkg/storage/mocks"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRouter(handler *ItemsHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Get("/items", handler.ListByState)
	router.Get("/items/{id}", handler.GetItem)
	router.Get("/items/{id}/logs", handler.ListLogs)
	router.Post("/items/{id}/reject", handler.RejectItem)
	return router
}

func TestGetItem(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer(nil), zerolog.Nop())

		item := &models.CommandItem{Id: "item-1", MeterSerial: "MTR-001", State: models.ITEM_ACKED, Attempts: 2}
		mockStorage.On("GetItem", mock.Anything, "item-1").Return(item, nil)

		req := httptest.NewRequest(http.MethodGet, "/items/item-1", nil)
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got api.CommandItem
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, 2, got.Attempts)
		assert.Equal(t, string(models.ITEM_ACKED), got.State)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer(nil), zerolog.Nop())

		mockStorage.On("GetItem", mock.Anything, "item-404").Return(nil, storage.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/items/item-404", nil)
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListByState(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer(nil), zerolog.Nop())

		mockStorage.On("ListItemsByState", mock.Anything, models.ITEM_DLQ, int32(0)).Return([]models.CommandItem{
			{Id: "item-1", State: models.ITEM_DLQ},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/items?state=DLQ", nil)
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Unknown State Is 400", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer(nil), zerolog.Nop())

		req := httptest.NewRequest(http.MethodGet, "/items?state=EXPLODED", nil)
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockStorage.AssertNotCalled(t, "ListItemsByState", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListLogs(t *testing.T) {
	t.Run("Returns History In Order", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer(nil), zerolog.Nop())

		mockStorage.On("GetItem", mock.Anything, "item-1").Return(&models.CommandItem{Id: "item-1"}, nil)
		mockStorage.On("ListLogsByItem", mock.Anything, "item-1").Return([]models.CommandLogEntry{
			{ItemId: "item-1", EntryId: "01JD0000000000000000000001", Status: models.LOG_DISPATCHED},
			{ItemId: "item-1", EntryId: "01JD0000000000000000000002", Status: models.LOG_RETRIED},
			{ItemId: "item-1", EntryId: "01JD0000000000000000000003", Status: models.LOG_DISPATCHED},
			{ItemId: "item-1", EntryId: "01JD0000000000000000000004", Status: models.LOG_ACKED},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/items/item-1/logs", nil)
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got []api.CommandLogEntry
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Len(t, got, 4)
		assert.Equal(t, string(models.LOG_ACKED), got[3].Status)
	})
}

func TestRejectItem(t *testing.T) {
	decisionBody := func(approver, reason string) *bytes.Reader {
		body, _ := json.Marshal(api.ApprovalDecision{ApproverId: approver, Reason: reason})
		return bytes.NewReader(body)
	}

	t.Run("Success", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer([]string{"approver-1"}), zerolog.Nop())

		mockStorage.On("RejectItem", mock.Anything, "item-1", "approver-1", "meter under maintenance").Return(nil)
		mockStorage.On("GetItem", mock.Anything, "item-1").Return(&models.CommandItem{Id: "item-1", State: models.ITEM_REJECTED}, nil)

		req := httptest.NewRequest(http.MethodPost, "/items/item-1/reject", decisionBody("approver-1", "meter under maintenance"))
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Unauthorized Is 403", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer([]string{"approver-1"}), zerolog.Nop())

		req := httptest.NewRequest(http.MethodPost, "/items/item-1/reject", decisionBody("intruder", ""))
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		mockStorage.AssertNotCalled(t, "RejectItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Already Decided Is 409", func(t *testing.T) {
		mockStorage := new(storage_mocks.ApiStore)
		handler := NewItemsHandler(mockStorage, authz.NewStaticAuthorizer([]string{"approver-1"}), zerolog.Nop())

		mockStorage.On("RejectItem", mock.Anything, "item-1", "approver-1", "").Return(storage.ErrInvalidState)

		req := httptest.NewRequest(http.MethodPost, "/items/item-1/reject", decisionBody("approver-1", ""))
		rr := httptest.NewRecorder()
		newTestRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
