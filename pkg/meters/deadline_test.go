package meters

import (
	"context"
	"testing"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/stretchr/testify/assert"
)

// slowChannel blocks until its context is cancelled.
type slowChannel struct{}

func (slowChannel) Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (Outcome, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// fixedChannel returns a fixed outcome immediately.
type fixedChannel struct {
	outcome Outcome
	err     error
}

func (c fixedChannel) Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (Outcome, error) {
	return c.outcome, c.err
}

func TestDeadlineChannel(t *testing.T) {
	t.Run("Fast Ack Passes Through", func(t *testing.T) {
		channel := NewDeadlineChannel(fixedChannel{outcome: ACK}, time.Second)

		outcome, err := channel.Send(context.Background(), "MTR-001", models.PING, "idem-1")

		assert.NoError(t, err)
		assert.Equal(t, ACK, outcome)
	})

	t.Run("Slow Send Becomes Timeout", func(t *testing.T) {
		channel := NewDeadlineChannel(slowChannel{}, 20*time.Millisecond)

		outcome, err := channel.Send(context.Background(), "MTR-001", models.PING, "idem-1")

		assert.NoError(t, err)
		assert.Equal(t, TIMEOUT, outcome)
	})

	t.Run("Caller Cancellation Is An Error", func(t *testing.T) {
		channel := NewDeadlineChannel(slowChannel{}, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		outcome, err := channel.Send(ctx, "MTR-001", models.PING, "idem-1")

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, TIMEOUT, outcome)
	})
}
