package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSQSAPI struct {
	mock.Mock
}

func (m *mockSQSAPI) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sqs.SendMessageOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestEnqueueItem(t *testing.T) {
	t.Run("Sends Item Id With Delay", func(t *testing.T) {
		mockClient := new(mockSQSAPI)
		queue := NewSQSQueue(mockClient, "https://sqs.test/dispatch")

		var captured *sqs.SendMessageInput
		mockClient.On("SendMessage", mock.Anything, mock.Anything).Once().
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*sqs.SendMessageInput)
			}).
			Return(&sqs.SendMessageOutput{}, nil)

		err := queue.EnqueueItem(context.Background(), "item-1", 10*time.Second)

		assert.NoError(t, err)
		assert.Equal(t, "https://sqs.test/dispatch", *captured.QueueUrl)
		assert.Equal(t, int32(10), captured.DelaySeconds)

		var msg DispatchMessage
		assert.NoError(t, json.Unmarshal([]byte(*captured.MessageBody), &msg))
		assert.Equal(t, "item-1", msg.ItemId)
		mockClient.AssertExpectations(t)
	})

	t.Run("Clamps Delay To SQS Maximum", func(t *testing.T) {
		mockClient := new(mockSQSAPI)
		queue := NewSQSQueue(mockClient, "https://sqs.test/dispatch")

		var captured *sqs.SendMessageInput
		mockClient.On("SendMessage", mock.Anything, mock.Anything).Once().
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*sqs.SendMessageInput)
			}).
			Return(&sqs.SendMessageOutput{}, nil)

		err := queue.EnqueueItem(context.Background(), "item-1", time.Hour)

		assert.NoError(t, err)
		assert.Equal(t, int32(900), captured.DelaySeconds)
	})

	t.Run("Negative Delay Becomes Immediate", func(t *testing.T) {
		mockClient := new(mockSQSAPI)
		queue := NewSQSQueue(mockClient, "https://sqs.test/dispatch")

		var captured *sqs.SendMessageInput
		mockClient.On("SendMessage", mock.Anything, mock.Anything).Once().
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*sqs.SendMessageInput)
			}).
			Return(&sqs.SendMessageOutput{}, nil)

		err := queue.EnqueueItem(context.Background(), "item-1", -time.Minute)

		assert.NoError(t, err)
		assert.Equal(t, int32(0), captured.DelaySeconds)
	})

	t.Run("Send Fails", func(t *testing.T) {
		mockClient := new(mockSQSAPI)
		queue := NewSQSQueue(mockClient, "https://sqs.test/dispatch")

		mockClient.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("sqs down"))

		err := queue.EnqueueItem(context.Background(), "item-1", 0)

		assert.Error(t, err)
	})
}
