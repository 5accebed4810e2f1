package meters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestBreakerChannel(t *testing.T) {
	t.Run("Ack Passes Through", func(t *testing.T) {
		channel := NewBreakerChannel(fixedChannel{outcome: ACK}, time.Minute)

		outcome, err := channel.Send(context.Background(), "MTR-001", models.PING, "idem-1")

		assert.NoError(t, err)
		assert.Equal(t, ACK, outcome)
	})

	t.Run("Nack Does Not Trip The Breaker", func(t *testing.T) {
		channel := NewBreakerChannel(fixedChannel{outcome: NACK}, time.Minute)

		for i := 0; i < 20; i++ {
			outcome, err := channel.Send(context.Background(), "MTR-001", models.PING, "idem-1")
			assert.NoError(t, err)
			assert.Equal(t, NACK, outcome)
		}
	})

	t.Run("Timeouts Trip The Breaker", func(t *testing.T) {
		inner := &countingChannel{outcome: TIMEOUT}
		channel := NewBreakerChannel(inner, time.Minute)

		for i := 0; i < 20; i++ {
			outcome, err := channel.Send(context.Background(), "MTR-001", models.PING, "idem-1")
			assert.NoError(t, err)
			assert.Equal(t, TIMEOUT, outcome)
		}

		// Once open, sends fail fast without reaching the head end.
		assert.Less(t, inner.calls, 20)
	})

	t.Run("Errors Trip The Breaker", func(t *testing.T) {
		inner := &countingChannel{err: errors.New("head-end unreachable")}
		channel := NewBreakerChannel(inner, time.Minute)

		for i := 0; i < 20; i++ {
			channel.Send(context.Background(), "MTR-001", models.PING, "idem-1")
		}

		outcome, err := channel.Send(context.Background(), "MTR-001", models.PING, "idem-1")
		assert.NoError(t, err)
		assert.Equal(t, TIMEOUT, outcome)
		assert.Less(t, inner.calls, 21)
	})
}

// countingChannel records how many sends reach it.
type countingChannel struct {
	outcome Outcome
	err     error
	calls   int
}

func (c *countingChannel) Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (Outcome, error) {
	c.calls++
	return c.outcome, c.err
}
