// Package mocks provides a hand-maintained testify mock for the meter
// communication channel.
package mocks

import (
	"context"

	"github.com/chris/ami-command-dispatch/pkg/meters"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/stretchr/testify/mock"
)

// Channel is a mock implementation of meters.Channel.
type Channel struct {
	mock.Mock
}

func (m *Channel) Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (meters.Outcome, error) {
	args := m.Called(ctx, meterSerial, commandType, idempotencyKey)
	return args.Get(0).(meters.Outcome), args.Error(1)
}
