// Package handlers carries the shared plumbing of the HTTP surface: JSON
// responses, storage-error to status-code mapping and body validation.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/go-playground/validator/v10"
)

// Validate is the shared validator instance for request bodies.
var Validate = validator.New()

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// WriteError maps storage sentinel errors to status codes and writes the
// error body. Unknown errors become a 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, storage.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, storage.ErrInvalidState):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, storage.ErrConcurrentModification):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, storage.ErrBalanceExists):
		status = http.StatusConflict
		message = err.Error()
	}

	WriteJSON(w, status, errorResponse{Error: message})
}

// DecodeAndValidate decodes the request body into v and runs struct
// validation on it.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", storage.ErrValidation, err)
	}
	if err := Validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	return nil
}
