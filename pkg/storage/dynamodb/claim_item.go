package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
)

// ClaimItem acquires an exclusive claim on an APPROVED item. The claim is a
// single write transaction: the conditional APPROVED -> DISPATCHED flip
// (which only one claimant can win), the attempt counter increment, and the
// DISPATCHED audit row. attempts therefore always equals the number of
// DISPATCHED log rows for the item. The condition pins the attempt count the
// claimant read, so a claim built on a stale read loses like any other race
// instead of returning an understated count.
func (s *Store) ClaimItem(ctx context.Context, itemID string) (*models.CommandItem, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.State != models.ITEM_APPROVED {
		return nil, fmt.Errorf("item %s is in state %s: %w", itemID, item.State, storage.ErrItemNotClaimable)
	}

	now := time.Now()
	logEntry := models.CommandLogEntry{
		ItemId:  itemID,
		EntryId: newEntryID(now),
		Status:  models.LOG_DISPATCHED,
		At:      now,
		Message: "claimed for dispatch",
	}
	logAV, err := attributevalue.MarshalMap(logEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispatch log entry: %w", err)
	}
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp for claim: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: win the claim and count the attempt.
				Update: &types.Update{
					TableName: aws.String(s.Tables.Items),
					Key: map[string]types.AttributeValue{
						"id": &types.AttributeValueMemberS{Value: itemID},
					},
					UpdateExpression:    aws.String("SET #state = :dispatched, attempts = attempts + :one, updated_at = :now"),
					ConditionExpression: aws.String("#state = :approved AND attempts = :attempts"),
					ExpressionAttributeNames: map[string]string{
						"#state": "state",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":dispatched": &types.AttributeValueMemberS{Value: string(models.ITEM_DISPATCHED)},
						":approved":   &types.AttributeValueMemberS{Value: string(models.ITEM_APPROVED)},
						":attempts":   &types.AttributeValueMemberN{Value: strconv.Itoa(item.Attempts)},
						":one":        &types.AttributeValueMemberN{Value: "1"},
						":now":        nowAV,
					},
				},
			},
			{
				// Operation 2: append the DISPATCHED audit row.
				Put: &types.Put{
					TableName:           aws.String(s.Tables.Logs),
					Item:                logAV,
					ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
				},
			},
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return nil, fmt.Errorf("item %s: %w", itemID, storage.ErrItemNotClaimable)
				}
			}
		}
		return nil, fmt.Errorf("failed to execute claim transaction: %w", err)
	}

	item.State = models.ITEM_DISPATCHED
	item.Attempts++
	item.UpdatedAt = now
	return item, nil
}

// ClaimNextItems drains up to batchSize APPROVED items, claiming each one
// individually. Claims lost to a concurrent worker are skipped, not errors.
func (s *Store) ClaimNextItems(ctx context.Context, batchSize int32) ([]models.CommandItem, error) {
	candidates, err := s.ListItemsByState(ctx, models.ITEM_APPROVED, batchSize)
	if err != nil {
		return nil, err
	}

	var claimed []models.CommandItem
	for _, candidate := range candidates {
		item, err := s.ClaimItem(ctx, candidate.Id)
		if err != nil {
			if errors.Is(err, storage.ErrItemNotClaimable) || errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return claimed, err
		}
		claimed = append(claimed, *item)
	}
	return claimed, nil
}
