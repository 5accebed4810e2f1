package meters

import (
	"context"
	"errors"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/models"
)

// DeadlineChannel bounds every send with a timeout. A head end that neither
// Acks nor Nacks within the deadline yields a TIMEOUT outcome; the send never
// blocks the dispatcher indefinitely.
type DeadlineChannel struct {
	Next    Channel
	Timeout time.Duration
}

// NewDeadlineChannel wraps next with a per-send deadline.
func NewDeadlineChannel(next Channel, timeout time.Duration) *DeadlineChannel {
	return &DeadlineChannel{Next: next, Timeout: timeout}
}

// Make sure we conform to the interface
var _ Channel = (*DeadlineChannel)(nil)

type sendResult struct {
	outcome Outcome
	err     error
}

// Send invokes the wrapped channel under a deadline.
func (c *DeadlineChannel) Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	done := make(chan sendResult, 1)
	go func() {
		outcome, err := c.Next.Send(ctx, meterSerial, commandType, idempotencyKey)
		done <- sendResult{outcome: outcome, err: err}
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, context.DeadlineExceeded) {
			return TIMEOUT, nil
		}
		return res.outcome, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return TIMEOUT, nil
		}
		return TIMEOUT, ctx.Err()
	}
}
