package storage

import (
	"context"

	"github.com/chris/ami-command-dispatch/pkg/models"
)

// MeterRegistry defines the interface to the external meter registry. The
// command store consults it when validating request targets.
type MeterRegistry interface {
	// GetMeter retrieves a meter by its serial.
	GetMeter(ctx context.Context, serial string) (*models.Meter, error)

	// PutMeter registers or updates a meter.
	PutMeter(ctx context.Context, meter *models.Meter) error
}
