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

// RecordOutcome appends an audit row and applies the state transition it
// implies to the owning item, in one write transaction. No log row can exist
// whose implied state was never applied, and no state change happens without
// its log row. Outcomes are only recordable against an item the caller holds
// in DISPATCHED state.
func (s *Store) RecordOutcome(ctx context.Context, itemID string, status models.LogStatus, message string) error {
	target, ok := models.StateForOutcome(status)
	if !ok {
		return fmt.Errorf("%w: unknown log status %q", storage.ErrValidation, status)
	}
	if status == models.LOG_DISPATCHED {
		// The DISPATCHED row is written by the claim itself.
		return fmt.Errorf("%w: dispatch outcomes are recorded by ClaimItem", storage.ErrValidation)
	}

	now := time.Now()
	logEntry := models.CommandLogEntry{
		ItemId:  itemID,
		EntryId: newEntryID(now),
		Status:  status,
		At:      now,
		Message: message,
	}
	logAV, err := attributevalue.MarshalMap(logEntry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp for outcome: %w", err)
	}

	update := "SET #state = :target, updated_at = :now"
	values := map[string]types.AttributeValue{
		":target":     &types.AttributeValueMemberS{Value: string(target)},
		":dispatched": &types.AttributeValueMemberS{Value: string(models.ITEM_DISPATCHED)},
		":now":        nowAV,
	}
	if message != "" && status != models.LOG_ACKED {
		update += ", last_error = :last_error"
		values[":last_error"] = &types.AttributeValueMemberS{Value: message}
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: append the audit row.
				Put: &types.Put{
					TableName:           aws.String(s.Tables.Logs),
					Item:                logAV,
					ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
				},
			},
			{
				// Operation 2: apply the implied state transition.
				Update: &types.Update{
					TableName: aws.String(s.Tables.Items),
					Key: map[string]types.AttributeValue{
						"id": &types.AttributeValueMemberS{Value: itemID},
					},
					UpdateExpression:    aws.String(update),
					ConditionExpression: aws.String("#state = :dispatched"),
					ExpressionAttributeNames: map[string]string{
						"#state": "state",
					},
					ExpressionAttributeValues: values,
				},
			},
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return fmt.Errorf("item %s is not in DISPATCHED state: %w", itemID, storage.ErrInvalidState)
				}
			}
		}
		return fmt.Errorf("failed to execute record-outcome transaction: %w", err)
	}

	return nil
}
