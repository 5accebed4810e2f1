// Package mocks provides a hand-maintained testify mock for the scheduler
// interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// DispatchQueue is a mock implementation of scheduler.DispatchQueue.
type DispatchQueue struct {
	mock.Mock
}

func (m *DispatchQueue) EnqueueItem(ctx context.Context, itemID string, delay time.Duration) error {
	args := m.Called(ctx, itemID, delay)
	return args.Error(0)
}
