package meters

import (
	"context"

	"github.com/chris/ami-command-dispatch/pkg/models"
)

// LoopbackChannel acknowledges every send without talking to a head end. It
// stands in for the real head-end adapter in local environments and demos.
type LoopbackChannel struct{}

// Make sure we conform to the interface
var _ Channel = (*LoopbackChannel)(nil)

// Send always acknowledges.
func (c *LoopbackChannel) Send(ctx context.Context, meterSerial string, commandType models.CommandType, idempotencyKey string) (Outcome, error) {
	return ACK, nil
}
