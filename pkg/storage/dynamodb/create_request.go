package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/google/uuid"
)

// A TransactWriteItems call takes at most 100 actions; one is the request row.
const maxRequestTargets = 99

// CreateRequest creates a DRAFT request and one PENDING_APPROVAL item per
// target meter in a single write transaction, after validating every target
// against the meter registry.
func (s *Store) CreateRequest(ctx context.Context, req *models.CommandRequest, meterSerials []string) (*models.CommandRequest, error) {
	if len(meterSerials) == 0 {
		return nil, fmt.Errorf("%w: no target meters", storage.ErrValidation)
	}
	if len(meterSerials) > maxRequestTargets {
		return nil, fmt.Errorf("%w: too many target meters (max %d)", storage.ErrValidation, maxRequestTargets)
	}
	if !models.ValidCommandType(req.Type) {
		return nil, fmt.Errorf("%w: unknown command type %q", storage.ErrValidation, req.Type)
	}

	// Validate targets: every serial must be unique within the request and
	// name an active meter.
	seen := make(map[string]struct{}, len(meterSerials))
	for _, serial := range meterSerials {
		if _, dup := seen[serial]; dup {
			return nil, fmt.Errorf("%w: duplicate target meter %s", storage.ErrValidation, serial)
		}
		seen[serial] = struct{}{}

		meter, err := s.GetMeter(ctx, serial)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown meter %s", storage.ErrValidation, serial)
			}
			return nil, fmt.Errorf("failed to validate meter %s: %w", serial, err)
		}
		if meter.Status != models.METER_ACTIVE {
			return nil, fmt.Errorf("%w: meter %s is not active", storage.ErrValidation, serial)
		}
	}

	// Complete the request object with server-side details.
	now := time.Now()
	req.Id = uuid.New().String()
	req.State = models.REQUEST_DRAFT
	req.RequestedAt = now
	req.UpdatedAt = now

	reqAV, err := attributevalue.MarshalMap(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	writes := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(s.Tables.Requests),
				Item:                reqAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		},
	}

	for _, serial := range meterSerials {
		item := models.CommandItem{
			Id:             uuid.New().String(),
			RequestId:      req.Id,
			MeterSerial:    serial,
			Type:           req.Type,
			State:          models.ITEM_PENDING_APPROVAL,
			Attempts:       0,
			IdempotencyKey: uuid.New().String(),
			UpdatedAt:      now,
		}
		itemAV, err := attributevalue.MarshalMap(item)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal item for meter %s: %w", serial, err)
		}
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.Tables.Items),
				Item:                itemAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		})
	}

	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	if err != nil {
		return nil, fmt.Errorf("failed to execute create-request transaction: %w", err)
	}

	return req, nil
}
