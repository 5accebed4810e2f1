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
	"github.com/shopspring/decimal"
)

// Monetary amounts are stored as decimal strings; attributevalue has no
// native marshalling for decimal.Decimal, so the store converts through
// these row types at the table boundary.

type balanceRow struct {
	ConsumerId string    `dynamodbav:"consumer_id"`
	Balance    string    `dynamodbav:"balance_amount"`
	Version    int64     `dynamodbav:"version"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
}

type ledgerRow struct {
	ConsumerId   string    `dynamodbav:"consumer_id"`
	EntryId      string    `dynamodbav:"entry_id"`
	MeterSerial  string    `dynamodbav:"meter_serial,omitempty"`
	Delta        string    `dynamodbav:"delta_amount"`
	BalanceAfter string    `dynamodbav:"balance_after"`
	Reason       string    `dynamodbav:"reason"`
	At           time.Time `dynamodbav:"at"`
}

func (r balanceRow) toModel() (*models.PrepaidBalance, error) {
	amount, err := decimal.NewFromString(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored balance %q: %w", r.Balance, err)
	}
	return &models.PrepaidBalance{
		ConsumerId: r.ConsumerId,
		Balance:    amount,
		Version:    r.Version,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func (r ledgerRow) toModel() (*models.PrepaidLedgerEntry, error) {
	delta, err := decimal.NewFromString(r.Delta)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored delta %q: %w", r.Delta, err)
	}
	after, err := decimal.NewFromString(r.BalanceAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored balance_after %q: %w", r.BalanceAfter, err)
	}
	return &models.PrepaidLedgerEntry{
		EntryId:      r.EntryId,
		ConsumerId:   r.ConsumerId,
		MeterSerial:  r.MeterSerial,
		Delta:        delta,
		BalanceAfter: after,
		Reason:       models.LedgerReason(r.Reason),
		At:           r.At,
	}, nil
}

// CreateBalance opens a balance row for a consumer.
func (s *Store) CreateBalance(ctx context.Context, consumerID string, opening decimal.Decimal) (*models.PrepaidBalance, error) {
	now := time.Now()
	row := balanceRow{
		ConsumerId: consumerID,
		Balance:    opening.String(),
		Version:    1,
		UpdatedAt:  now,
	}
	rowAV, err := attributevalue.MarshalMap(row)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal balance: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.Balances),
		Item:                rowAV,
		ConditionExpression: aws.String("attribute_not_exists(consumer_id)"),
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return nil, fmt.Errorf("consumer %s: %w", consumerID, storage.ErrBalanceExists)
		}
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}

	return row.toModel()
}

// GetBalance retrieves a consumer's current balance projection.
func (s *Store) GetBalance(ctx context.Context, consumerID string) (*models.PrepaidBalance, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Tables.Balances),
		Key: map[string]types.AttributeValue{
			"consumer_id": &types.AttributeValueMemberS{Value: consumerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get balance from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("balance for consumer %s: %w", consumerID, storage.ErrNotFound)
	}

	var row balanceRow
	if err := attributevalue.UnmarshalMap(result.Item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balance: %w", err)
	}
	return row.toModel()
}

// RecordLedgerEntry atomically appends a ledger row and applies delta to the
// balance projection. The balance update carries the version read before the
// write; if a concurrent update bumped it first, the whole transaction
// cancels and the caller gets ErrConcurrentModification to retry.
func (s *Store) RecordLedgerEntry(ctx context.Context, consumerID, meterSerial string, delta decimal.Decimal, reason models.LedgerReason) (*models.PrepaidLedgerEntry, error) {
	if !models.ValidLedgerReason(reason) {
		return nil, fmt.Errorf("%w: unknown ledger reason %q", storage.ErrValidation, reason)
	}

	balance, err := s.GetBalance(ctx, consumerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newBalance := balance.Balance.Add(delta)
	row := ledgerRow{
		ConsumerId:   consumerID,
		EntryId:      newEntryID(now),
		MeterSerial:  meterSerial,
		Delta:        delta.String(),
		BalanceAfter: newBalance.String(),
		Reason:       string(reason),
		At:           now,
	}
	rowAV, err := attributevalue.MarshalMap(row)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp for ledger entry: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: append the ledger row.
				Put: &types.Put{
					TableName:           aws.String(s.Tables.Ledger),
					Item:                rowAV,
					ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
				},
			},
			{
				// Operation 2: move the projection, guarded by the version
				// read above.
				Update: &types.Update{
					TableName: aws.String(s.Tables.Balances),
					Key: map[string]types.AttributeValue{
						"consumer_id": &types.AttributeValueMemberS{Value: consumerID},
					},
					UpdateExpression:    aws.String("SET balance_amount = :new_balance, version = version + :one, updated_at = :now"),
					ConditionExpression: aws.String("version = :version"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":new_balance": &types.AttributeValueMemberS{Value: newBalance.String()},
						":version":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", balance.Version)},
						":one":         &types.AttributeValueMemberN{Value: "1"},
						":now":         nowAV,
					},
				},
			},
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, cancelReason := range tce.CancellationReasons {
				if cancelReason.Code != nil && *cancelReason.Code == "ConditionalCheckFailed" {
					return nil, fmt.Errorf("balance for consumer %s: %w", consumerID, storage.ErrConcurrentModification)
				}
			}
		}
		return nil, fmt.Errorf("failed to execute ledger transaction: %w", err)
	}

	return row.toModel()
}

// ListLedgerEntries retrieves the most recent ledger entries for a consumer,
// newest first. ULID entry ids make the range key time-ordered.
func (s *Store) ListLedgerEntries(ctx context.Context, consumerID string, limit int32) ([]models.PrepaidLedgerEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Ledger),
		KeyConditionExpression: aws.String("consumer_id = :consumer_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":consumer_id": &types.AttributeValueMemberS{Value: consumerID},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}

	var rows []ledgerRow
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entries: %w", err)
	}

	entries := make([]models.PrepaidLedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toModel()
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
