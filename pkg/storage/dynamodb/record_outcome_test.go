package dynamodb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/chris/ami-command-dispatch/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRecordOutcome(t *testing.T) {
	testTables := Tables{Items: "items", Logs: "logs"}

	t.Run("Ack", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		var captured *dynamodb.TransactWriteItemsInput
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Once().
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*dynamodb.TransactWriteItemsInput)
			}).
			Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		err := store.RecordOutcome(context.Background(), "item-1", models.LOG_ACKED, "")

		assert.NoError(t, err)
		assert.Len(t, captured.TransactItems, 2)

		var logEntry models.CommandLogEntry
		assert.NoError(t, attributevalue.UnmarshalMap(captured.TransactItems[0].Put.Item, &logEntry))
		assert.Equal(t, models.LOG_ACKED, logEntry.Status)

		update := captured.TransactItems[1].Update
		assert.Contains(t, *update.ConditionExpression, ":dispatched")
		target := update.ExpressionAttributeValues[":target"].(*types.AttributeValueMemberS)
		assert.Equal(t, string(models.ITEM_ACKED), target.Value)
		assert.NotContains(t, *update.UpdateExpression, "last_error")
		mockClient.AssertExpectations(t)
	})

	t.Run("Retried Sets Last Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		var captured *dynamodb.TransactWriteItemsInput
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Once().
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*dynamodb.TransactWriteItemsInput)
			}).
			Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		err := store.RecordOutcome(context.Background(), "item-1", models.LOG_RETRIED, "timed out waiting for meter")

		assert.NoError(t, err)
		update := captured.TransactItems[1].Update
		target := update.ExpressionAttributeValues[":target"].(*types.AttributeValueMemberS)
		assert.Equal(t, string(models.ITEM_APPROVED), target.Value)
		assert.Contains(t, *update.UpdateExpression, "last_error")
	})

	t.Run("Moved To DLQ", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		var captured *dynamodb.TransactWriteItemsInput
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Once().
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*dynamodb.TransactWriteItemsInput)
			}).
			Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		err := store.RecordOutcome(context.Background(), "item-1", models.LOG_MOVED_TO_DLQ, "retry limit reached")

		assert.NoError(t, err)
		target := captured.TransactItems[1].Update.ExpressionAttributeValues[":target"].(*types.AttributeValueMemberS)
		assert.Equal(t, string(models.ITEM_DLQ), target.Value)
	})

	t.Run("Dispatched Status Rejected", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		err := store.RecordOutcome(context.Background(), "item-1", models.LOG_DISPATCHED, "")

		assert.ErrorIs(t, err, storage.ErrValidation)
		mockClient.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
	})

	t.Run("Unknown Status", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		err := store.RecordOutcome(context.Background(), "item-1", "EXPLODED", "")

		assert.ErrorIs(t, err, storage.ErrValidation)
	})

	t.Run("Item Not Dispatched", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
			},
		})

		err := store.RecordOutcome(context.Background(), "item-1", models.LOG_ACKED, "")

		assert.ErrorIs(t, err, storage.ErrInvalidState)
	})
}
