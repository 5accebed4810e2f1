package storage

import "errors"

// ErrNotFound is returned when a request, item, meter or balance does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned when an operation is attempted against a request
// or item that is not in the state the operation requires.
var ErrInvalidState = errors.New("not in a valid state for this operation")

// ErrValidation is returned when input is malformed, e.g. a request with no
// target meters or a meter that is unknown or inactive.
var ErrValidation = errors.New("validation failed")

// ErrItemNotClaimable is returned when a claim loses the conditional update,
// either because another dispatcher holds the item or because it is no longer
// in the APPROVED state.
var ErrItemNotClaimable = errors.New("item not claimable")

// ErrConcurrentModification is returned when an optimistic-lock version check
// fails on a balance update. The caller should retry the whole operation.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// ErrBalanceExists is returned when opening a balance for a consumer that
// already has one.
var ErrBalanceExists = errors.New("balance already exists")
