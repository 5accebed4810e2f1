// Package meters defines the boundary to the meter communication channel.
// The actual head-end system is external; this package carries the interface,
// the deadline handling that turns a hung call into a Timeout outcome, and a
// circuit breaker for a misbehaving head end.
package meters

import (
	"context"

	"github.com/chris/ami-command-dispatch/pkg/models"
)

// Outcome is the transport-level result of a send. Nack and Timeout are
// first-class results, not errors: they drive the retry/DLQ state machine.
type Outcome string

const (
	ACK     Outcome = "ACK"
	NACK    Outcome = "NACK"
	TIMEOUT Outcome = "TIMEOUT"
)

// Channel defines the single send capability of the meter communication
// system. Implementations must pass idempotencyKey through to the head end
// unchanged so that a retried send of the same logical command is
// deduplicated at the transport boundary.
type Channel interface {
	Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (Outcome, error)
}
