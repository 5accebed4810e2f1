package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/ami-command-dispatch/pkg/storage"
	"github.com/oklog/ulid/v2"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the store. It
// exists so tests can substitute a mock. Note the absence of DeleteItem:
// requests, items, log rows and ledger rows are never physically deleted.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Tables names the DynamoDB tables backing the store.
type Tables struct {
	Requests string
	Items    string
	Logs     string
	Meters   string
	Balances string
	Ledger   string
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client DynamoDBAPI
	Tables Tables
}

// New creates a new Store.
func New(client DynamoDBAPI, tables Tables) *Store {
	return &Store{Client: client, Tables: tables}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// Secondary indexes. Items and requests are looked up by state for dispatch
// and reconciliation; items additionally by their parent request.
const (
	itemStateIndex    = "state-index"
	itemRequestIndex  = "request_id-index"
	requestStateIndex = "state-index"
)

// newEntryID returns a ULID for log and ledger rows. ULIDs sort by creation
// time, so range queries on the entry id return insertion order.
func newEntryID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}
