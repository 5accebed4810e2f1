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
)

// GetStuckItems retrieves items sitting in DISPATCHED state for longer than
// maxAge. A healthy dispatch records its outcome within seconds; anything
// older was claimed by a worker that died mid-flight.
func (s *Store) GetStuckItems(ctx context.Context, maxAge time.Duration) ([]models.CommandItem, error) {
	cutoff := time.Now().Add(-maxAge)
	cutoffStr, err := cutoff.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff time: %w", err)
	}

	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Items),
		IndexName:              aws.String(itemStateIndex),
		KeyConditionExpression: aws.String("#state = :state"),
		FilterExpression:       aws.String("updated_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":state":  &types.AttributeValueMemberS{Value: string(models.ITEM_DISPATCHED)},
			":cutoff": &types.AttributeValueMemberS{Value: string(cutoffStr)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query for stuck items: %w", err)
	}

	var items []models.CommandItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stuck items: %w", err)
	}
	return items, nil
}

// FinalizeRequest moves an APPROVED request to DISPATCHED once every item has
// left the approval pipeline: none pending, none still waiting for a claim.
func (s *Store) FinalizeRequest(ctx context.Context, requestID string) error {
	items, err := s.ListItemsByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.State == models.ITEM_PENDING_APPROVAL || item.State == models.ITEM_APPROVED {
			return fmt.Errorf("request %s has items still awaiting dispatch: %w", requestID, storage.ErrInvalidState)
		}
	}

	nowAV, err := attributevalue.Marshal(time.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp for finalize: %w", err)
	}

	_, err = s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.Tables.Requests),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: requestID},
		},
		UpdateExpression:    aws.String("SET #state = :dispatched, updated_at = :now"),
		ConditionExpression: aws.String("#state = :approved"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":dispatched": &types.AttributeValueMemberS{Value: string(models.REQUEST_DISPATCHED)},
			":approved":   &types.AttributeValueMemberS{Value: string(models.REQUEST_APPROVED)},
			":now":        nowAV,
		},
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return fmt.Errorf("request %s is not approved: %w", requestID, storage.ErrInvalidState)
		}
		return fmt.Errorf("failed to finalize request: %w", err)
	}
	return nil
}
