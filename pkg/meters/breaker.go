package meters

import (
	"context"
	"errors"
	"time"

	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/sony/gobreaker"
)

// BreakerChannel wraps a channel with a circuit breaker. When the head end is
// failing hard, the breaker opens and sends fail fast as TIMEOUT outcomes,
// which feed the normal retry path without piling load onto a dead system.
type BreakerChannel struct {
	next    Channel
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerChannel wraps next with a circuit breaker. The breaker trips when
// more than half of at least ten consecutive requests fail, and probes again
// after the open interval.
func NewBreakerChannel(next Channel, openTimeout time.Duration) *BreakerChannel {
	settings := gobreaker.Settings{
		Name:    "meter-channel",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.TotalFailures*2 > counts.Requests
		},
	}
	return &BreakerChannel{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Make sure we conform to the interface
var _ Channel = (*BreakerChannel)(nil)

// Send invokes the wrapped channel through the breaker. TIMEOUT outcomes
// count as failures so a silent head end also trips the breaker.
func (c *BreakerChannel) Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (Outcome, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		outcome, err := c.next.Send(ctx, meterSerial, commandType, idempotencyKey)
		if err != nil {
			return outcome, err
		}
		if outcome == TIMEOUT {
			return outcome, errTimeoutOutcome
		}
		return outcome, nil
	})
	if err != nil {
		if errors.Is(err, errTimeoutOutcome) {
			return TIMEOUT, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return TIMEOUT, nil
		}
		return TIMEOUT, err
	}
	return result.(Outcome), nil
}

var errTimeoutOutcome = errors.New("send timed out")
