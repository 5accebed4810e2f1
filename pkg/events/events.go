// Package events publishes item state-change notifications for operator
// dashboards and downstream consumers. Publishing is best effort: a failed
// publish is logged by the caller, never allowed to fail the state change it
// describes.
package events

import (
	"context"

	"github.com/chris/ami-command-dispatch/pkg/models"
)

// MessageType defines the type of a published event.
type MessageType string

const (
	// MessageTypeItemUpdate is for command item state changes.
	MessageTypeItemUpdate MessageType = "itemUpdate"
)

// Message represents a generic published event.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// ItemUpdatePayload is the payload for an itemUpdate message.
type ItemUpdatePayload struct {
	ItemID      string           `json:"item_id"`
	RequestID   string           `json:"request_id"`
	MeterSerial string           `json:"meter_serial"`
	State       models.ItemState `json:"state"`
	Attempts    int              `json:"attempts"`
	LastError   string           `json:"last_error,omitempty"`
}

// Publisher defines the interface for publishing events.
type Publisher interface {
	Publish(ctx context.Context, message Message) error
}

// NoOpPublisher is a publisher that does nothing.
type NoOpPublisher struct{}

// Publish does nothing.
func (p *NoOpPublisher) Publish(ctx context.Context, message Message) error {
	return nil
}
