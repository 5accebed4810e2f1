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

// ApproveRequest flips a PENDING_APPROVAL request to APPROVED and cascades the
// approval to every item still pending. The request flip is the gate: once it
// wins, item cascades that lose their own conditional write (an item rejected
// individually in the meantime) are skipped rather than failed, because the
// schema deliberately allows item state to diverge from the request.
//
// The flip and the cascade are separate writes, so a cascade can die halfway
// with the request already APPROVED and items still pending. Retrying the
// approve on an already-approved request skips the flip and re-runs the
// cascade over whatever is left.
func (s *Store) ApproveRequest(ctx context.Context, requestID, approverID string) ([]models.CommandItem, error) {
	if err := s.decideRequest(ctx, requestID, approverID, models.REQUEST_APPROVED, ""); err != nil {
		return nil, err
	}
	return s.cascadeItems(ctx, requestID, models.ITEM_APPROVED, "")
}

// RejectRequest flips a PENDING_APPROVAL request to REJECTED and cascades the
// rejection to every item still pending.
func (s *Store) RejectRequest(ctx context.Context, requestID, approverID, reason string) error {
	if err := s.decideRequest(ctx, requestID, approverID, models.REQUEST_REJECTED, reason); err != nil {
		return err
	}
	_, err := s.cascadeItems(ctx, requestID, models.ITEM_REJECTED, reason)
	return err
}

// RejectItem rejects a single pending item while its parent request is still
// in flight, enabling partial approval of the remainder.
func (s *Store) RejectItem(ctx context.Context, itemID, approverID, reason string) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !item.State.CanTransition(models.ITEM_REJECTED) {
		return fmt.Errorf("item %s is not pending approval: %w", itemID, storage.ErrInvalidState)
	}

	if err := s.transitionItem(ctx, itemID, models.ITEM_PENDING_APPROVAL, models.ITEM_REJECTED, reason); err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return fmt.Errorf("item %s is not pending approval: %w", itemID, storage.ErrInvalidState)
		}
		return err
	}
	return nil
}

// decideRequest performs the conditional PENDING_APPROVAL -> decision flip on
// the request row. A request already carrying the decision is treated as
// flipped, so callers whose cascade was interrupted can retry and finish it.
func (s *Store) decideRequest(ctx context.Context, requestID, approverID string, decision models.RequestState, reason string) error {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.State == decision {
		return nil
	}
	if !req.State.CanTransition(decision) {
		return fmt.Errorf("request %s is not pending approval: %w", requestID, storage.ErrInvalidState)
	}

	nowAV, err := attributevalue.Marshal(time.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp for decision: %w", err)
	}

	update := "SET #state = :decision, decided_by = :approver, updated_at = :now"
	values := map[string]types.AttributeValue{
		":decision": &types.AttributeValueMemberS{Value: string(decision)},
		":pending":  &types.AttributeValueMemberS{Value: string(models.REQUEST_PENDING_APPROVAL)},
		":approver": &types.AttributeValueMemberS{Value: approverID},
		":now":      nowAV,
	}
	if reason != "" {
		update += ", reason = :reason"
		values[":reason"] = &types.AttributeValueMemberS{Value: reason}
	}

	_, err = s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.Tables.Requests),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: requestID},
		},
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String("#state = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return fmt.Errorf("request %s is not pending approval: %w", requestID, storage.ErrInvalidState)
		}
		return fmt.Errorf("failed to update request state: %w", err)
	}
	return nil
}

// cascadeItems moves every still-pending item of the request to the target
// state, one conditional write per item. Items that lost their own race are
// skipped. The successfully transitioned items are returned.
func (s *Store) cascadeItems(ctx context.Context, requestID string, target models.ItemState, reason string) ([]models.CommandItem, error) {
	items, err := s.ListItemsByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var transitioned []models.CommandItem
	for _, item := range items {
		if item.State != models.ITEM_PENDING_APPROVAL {
			continue
		}
		if err := s.transitionItem(ctx, item.Id, models.ITEM_PENDING_APPROVAL, target, reason); err != nil {
			var condCheckFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condCheckFailed) {
				continue
			}
			return transitioned, fmt.Errorf("failed to cascade item %s: %w", item.Id, err)
		}
		item.State = target
		transitioned = append(transitioned, item)
	}
	return transitioned, nil
}

// transitionItem performs a single conditional item state flip.
func (s *Store) transitionItem(ctx context.Context, itemID string, from, to models.ItemState, lastError string) error {
	nowAV, err := attributevalue.Marshal(time.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp for item transition: %w", err)
	}

	update := "SET #state = :to, updated_at = :now"
	values := map[string]types.AttributeValue{
		":to":   &types.AttributeValueMemberS{Value: string(to)},
		":from": &types.AttributeValueMemberS{Value: string(from)},
		":now":  nowAV,
	}
	if lastError != "" {
		update += ", last_error = :last_error"
		values[":last_error"] = &types.AttributeValueMemberS{Value: lastError}
	}

	_, err = s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.Tables.Items),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: itemID},
		},
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String("#state = :from"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: values,
	})
	return err
}
