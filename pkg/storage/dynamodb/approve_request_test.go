package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/ami-command-dispatch/pkg/models"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/chris/ami-command-dispatch/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func requestOutput(t *testing.T, req models.CommandRequest) *dynamodb.GetItemOutput {
	t.Helper()
	av, err := attributevalue.MarshalMap(req)
	assert.NoError(t, err)
	return &dynamodb.GetItemOutput{Item: av}
}

func itemsQueryOutput(t *testing.T, items ...models.CommandItem) *dynamodb.QueryOutput {
	t.Helper()
	out := &dynamodb.QueryOutput{}
	for _, item := range items {
		av, err := attributevalue.MarshalMap(item)
		assert.NoError(t, err)
		out.Items = append(out.Items, av)
	}
	return out
}

func TestApproveRequest(t *testing.T) {
	testTables := Tables{Requests: "requests", Items: "items"}
	pendingReq := models.CommandRequest{Id: "req-1", Type: models.DISCONNECT, State: models.REQUEST_PENDING_APPROVAL}

	t.Run("Cascades To Pending Items", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(requestOutput(t, pendingReq), nil)
		// Request flip, then one flip per still-pending item.
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Times(3).Return(&dynamodb.UpdateItemOutput{}, nil)
		mockClient.On("Query", mock.Anything, mock.Anything).Return(itemsQueryOutput(t,
			models.CommandItem{Id: "item-1", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
			models.CommandItem{Id: "item-2", RequestId: "req-1", State: models.ITEM_REJECTED},
			models.CommandItem{Id: "item-3", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
		), nil)

		approved, err := store.ApproveRequest(context.Background(), "req-1", "approver-1")

		assert.NoError(t, err)
		// The individually rejected item is left alone.
		assert.Len(t, approved, 2)
		assert.Equal(t, models.ITEM_APPROVED, approved[0].State)
		assert.Equal(t, models.ITEM_APPROVED, approved[1].State)
		mockClient.AssertExpectations(t)
	})

	t.Run("Request Not Pending", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		dispatched := pendingReq
		dispatched.State = models.REQUEST_DISPATCHED
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(requestOutput(t, dispatched), nil)

		_, err := store.ApproveRequest(context.Background(), "req-1", "approver-1")

		assert.ErrorIs(t, err, storage.ErrInvalidState)
		mockClient.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
		mockClient.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})

	t.Run("Lost Decision Race", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		// The read saw PENDING_APPROVAL but the flip lost its conditional
		// write to a concurrent rejection.
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(requestOutput(t, pendingReq), nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := store.ApproveRequest(context.Background(), "req-1", "approver-1")

		assert.ErrorIs(t, err, storage.ErrInvalidState)
		mockClient.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})

	t.Run("Request Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		_, err := store.ApproveRequest(context.Background(), "req-404", "approver-1")

		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Cascade Skips Raced Items", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(requestOutput(t, pendingReq), nil)
		// Request flip succeeds; the first item flip loses its conditional
		// write to a concurrent per-item rejection.
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(nil, &types.ConditionalCheckFailedException{})
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)
		mockClient.On("Query", mock.Anything, mock.Anything).Return(itemsQueryOutput(t,
			models.CommandItem{Id: "item-1", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
			models.CommandItem{Id: "item-2", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
		), nil)

		approved, err := store.ApproveRequest(context.Background(), "req-1", "approver-1")

		assert.NoError(t, err)
		assert.Len(t, approved, 1)
		assert.Equal(t, "item-2", approved[0].Id)
	})

	t.Run("Retry Resumes Interrupted Cascade", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		// First attempt: the request flips to APPROVED, item-1 cascades,
		// then item-2's write dies on a transient error.
		mockClient.On("GetItem", mock.Anything, mock.Anything).Once().Return(requestOutput(t, pendingReq), nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)
		mockClient.On("Query", mock.Anything, mock.Anything).Once().Return(itemsQueryOutput(t,
			models.CommandItem{Id: "item-1", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
			models.CommandItem{Id: "item-2", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
		), nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(nil, errors.New("throughput exceeded"))

		approved, err := store.ApproveRequest(context.Background(), "req-1", "approver-1")
		assert.Error(t, err)
		assert.Len(t, approved, 1)

		// Retry: the request is already APPROVED, so the flip is skipped and
		// the cascade picks up the item the first attempt left pending.
		approvedReq := pendingReq
		approvedReq.State = models.REQUEST_APPROVED
		mockClient.On("GetItem", mock.Anything, mock.Anything).Once().Return(requestOutput(t, approvedReq), nil)
		mockClient.On("Query", mock.Anything, mock.Anything).Once().Return(itemsQueryOutput(t,
			models.CommandItem{Id: "item-1", RequestId: "req-1", State: models.ITEM_APPROVED},
			models.CommandItem{Id: "item-2", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
		), nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)

		approved, err = store.ApproveRequest(context.Background(), "req-1", "approver-1")
		assert.NoError(t, err)
		assert.Len(t, approved, 1)
		assert.Equal(t, "item-2", approved[0].Id)
		mockClient.AssertExpectations(t)
	})
}

func TestRejectRequest(t *testing.T) {
	testTables := Tables{Requests: "requests", Items: "items"}

	t.Run("Cascades Rejection", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		pendingReq := models.CommandRequest{Id: "req-1", State: models.REQUEST_PENDING_APPROVAL}
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(requestOutput(t, pendingReq), nil)

		var updates []*dynamodb.UpdateItemInput
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Times(2).
			Run(func(args mock.Arguments) {
				updates = append(updates, args.Get(1).(*dynamodb.UpdateItemInput))
			}).
			Return(&dynamodb.UpdateItemOutput{}, nil)
		mockClient.On("Query", mock.Anything, mock.Anything).Return(itemsQueryOutput(t,
			models.CommandItem{Id: "item-1", RequestId: "req-1", State: models.ITEM_PENDING_APPROVAL},
		), nil)

		err := store.RejectRequest(context.Background(), "req-1", "approver-1", "maintenance window closed")

		assert.NoError(t, err)
		assert.Len(t, updates, 2)
		// Both the request flip and the item cascade carry the reason.
		assert.Contains(t, *updates[0].UpdateExpression, "reason")
		assert.Contains(t, *updates[1].UpdateExpression, "last_error")
		mockClient.AssertExpectations(t)
	})
}

func TestRejectItem(t *testing.T) {
	testTables := Tables{Requests: "requests", Items: "items"}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		pending := models.CommandItem{Id: "item-1", State: models.ITEM_PENDING_APPROVAL}
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(itemOutput(t, pending), nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)

		err := store.RejectItem(context.Background(), "item-1", "approver-1", "meter under maintenance")

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Already Decided", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		acked := models.CommandItem{Id: "item-1", State: models.ITEM_ACKED}
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(itemOutput(t, acked), nil)

		err := store.RejectItem(context.Background(), "item-1", "approver-1", "too late")

		assert.ErrorIs(t, err, storage.ErrInvalidState)
		mockClient.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})
}
