package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS caps per-message delay at 15 minutes.
const maxSQSDelay = 15 * time.Minute

// SQSAPI is the subset of the SQS client used by the queue, substitutable in
// tests.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DispatchMessage is the body of a queued dispatch message.
type DispatchMessage struct {
	ItemId string `json:"item_id"`
}

// SQSQueue implements the DispatchQueue interface using AWS SQS.
type SQSQueue struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSQueue creates a new SQSQueue.
func NewSQSQueue(client SQSAPI, queueURL string) *SQSQueue {
	return &SQSQueue{Client: client, QueueURL: queueURL}
}

// Make sure we conform to the interface
var _ DispatchQueue = (*SQSQueue)(nil)

// EnqueueItem sends the item id to the dispatch queue with the given delay.
func (q *SQSQueue) EnqueueItem(ctx context.Context, itemID string, delay time.Duration) error {
	body, err := json.Marshal(DispatchMessage{ItemId: itemID})
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch message: %w", err)
	}

	if delay < 0 {
		delay = 0
	}
	if delay > maxSQSDelay {
		delay = maxSQSDelay
	}

	_, err = q.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(q.QueueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: int32(delay / time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}
	return nil
}
