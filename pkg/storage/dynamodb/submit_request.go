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

// SubmitRequest moves a request from DRAFT to PENDING_APPROVAL. The update is
// conditional on the current state, so a request can never re-enter the
// approval pipeline once it has left DRAFT.
func (s *Store) SubmitRequest(ctx context.Context, requestID string) error {
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return err
	}

	nowAV, err := attributevalue.Marshal(time.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp for submit: %w", err)
	}

	_, err = s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.Tables.Requests),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: requestID},
		},
		UpdateExpression:    aws.String("SET #state = :pending, updated_at = :now"),
		ConditionExpression: aws.String("#state = :draft"),
		ExpressionAttributeNames: map[string]string{
			"#state": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: string(models.REQUEST_PENDING_APPROVAL)},
			":draft":   &types.AttributeValueMemberS{Value: string(models.REQUEST_DRAFT)},
			":now":     nowAV,
		},
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return fmt.Errorf("request %s is not in DRAFT: %w", requestID, storage.ErrInvalidState)
		}
		return fmt.Errorf("failed to submit request: %w", err)
	}

	return nil
}
