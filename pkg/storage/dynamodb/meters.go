package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
)

// GetMeter retrieves a meter from the registry table by its serial.
func (s *Store) GetMeter(ctx context.Context, serial string) (*models.Meter, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.Meters),
		Key: map[string]types.AttributeValue{
			"serial": &types.AttributeValueMemberS{Value: serial},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get meter from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("meter %s: %w", serial, storage.ErrNotFound)
	}

	var meter models.Meter
	if err := attributevalue.UnmarshalMap(result.Item, &meter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meter: %w", err)
	}
	return &meter, nil
}

// PutMeter registers or updates a meter in the registry table.
func (s *Store) PutMeter(ctx context.Context, meter *models.Meter) error {
	meterAV, err := attributevalue.MarshalMap(meter)
	if err != nil {
		return fmt.Errorf("failed to marshal meter: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Tables.Meters),
		Item:      meterAV,
	})
	if err != nil {
		return fmt.Errorf("failed to put meter: %w", err)
	}
	return nil
}
