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

// GetRequest retrieves a command request from DynamoDB by its ID.
func (s *Store) GetRequest(ctx context.Context, requestID string) (*models.CommandRequest, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.Requests),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: requestID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get request from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, storage.ErrNotFound)
	}

	var req models.CommandRequest
	if err := attributevalue.UnmarshalMap(result.Item, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}

// GetItem retrieves a command item from DynamoDB by its ID.
func (s *Store) GetItem(ctx context.Context, itemID string) (*models.CommandItem, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.Items),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: itemID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, storage.ErrNotFound)
	}

	var item models.CommandItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

// ListItemsByRequest retrieves all items belonging to a request.
func (s *Store) ListItemsByRequest(ctx context.Context, requestID string) ([]models.CommandItem, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Items),
		IndexName:              aws.String(itemRequestIndex),
		KeyConditionExpression: aws.String("request_id = :request_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":request_id": &types.AttributeValueMemberS{Value: requestID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query items by request: %w", err)
	}

	var items []models.CommandItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return items, nil
}

// ListItemsByState retrieves up to limit items in the given state.
func (s *Store) ListItemsByState(ctx context.Context, state models.ItemState, limit int32) ([]models.CommandItem, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Items),
		IndexName:              aws.String(itemStateIndex),
		KeyConditionExpression: aws.String("#state = :state"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":state": &types.AttributeValueMemberS{Value: string(state)},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query items by state: %w", err)
	}

	var items []models.CommandItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return items, nil
}

// ListLogsByItem retrieves the full audit history of an item. The log table
// is keyed (item_id, entry_id) with ULID entry ids, so the query returns rows
// in insertion order.
func (s *Store) ListLogsByItem(ctx context.Context, itemID string) ([]models.CommandLogEntry, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Logs),
		KeyConditionExpression: aws.String("item_id = :item_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":item_id": &types.AttributeValueMemberS{Value: itemID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query logs by item: %w", err)
	}

	var logs []models.CommandLogEntry
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal log entries: %w", err)
	}
	return logs, nil
}

// ListRequestsByState retrieves up to limit requests in the given state.
func (s *Store) ListRequestsByState(ctx context.Context, state models.RequestState, limit int32) ([]models.CommandRequest, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Requests),
		IndexName:              aws.String(requestStateIndex),
		KeyConditionExpression: aws.String("#state = :state"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":state": &types.AttributeValueMemberS{Value: string(state)},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests by state: %w", err)
	}

	var requests []models.CommandRequest
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &requests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal requests: %w", err)
	}
	return requests, nil
}
