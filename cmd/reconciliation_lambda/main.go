package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	dynamodbsvc "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/ami-command-dispatch/pkg/config"
	"github.com/chris/ami-command-dispatch/pkg/dispatcher"
	applogger "github.com/chris/ami-command-dispatch/pkg/logger"
	"github.com/chris/ami-command-dispatch/pkg/scheduler"
	dydbstore "github.com/chris/ami-command-dispatch/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	reconciler *dispatcher.Reconciler
	log        zerolog.Logger
)

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log = applogger.New("ami-reconciliation-lambda", cfg.App.LogLevel)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	dbClient := dynamodbsvc.NewFromConfig(awsCfg)
	store := dydbstore.New(dbClient, dydbstore.Tables{
		Requests: cfg.DynamoDB.RequestsTable,
		Items:    cfg.DynamoDB.ItemsTable,
		Logs:     cfg.DynamoDB.LogsTable,
		Meters:   cfg.DynamoDB.MetersTable,
		Balances: cfg.DynamoDB.BalancesTable,
		Ledger:   cfg.DynamoDB.LedgerTable,
	})

	sqsClient := sqs.NewFromConfig(awsCfg)
	queue := scheduler.NewSQSQueue(sqsClient, cfg.Queue.DispatchQueueURL)

	reconciler = &dispatcher.Reconciler{
		Store:      store,
		Queue:      queue,
		Logger:     log,
		StuckAge:   cfg.Dispatch.StuckAge,
		RetryLimit: cfg.Dispatch.RetryLimit,
	}
}

// HandleRequest is triggered by an EventBridge Schedule. It releases stale
// dispatch claims and finalizes fully-resolved requests.
func HandleRequest(ctx context.Context) error {
	return reconciler.Run(ctx)
}

func main() {
	lambda.Start(HandleRequest)
}
