package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	dynamodbsvc "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/ami-command-dispatch/pkg/config"
	"github.com/chris/ami-command-dispatch/pkg/dispatcher"
	applogger "github.com/chris/ami-command-dispatch/pkg/logger"
	"github.com/chris/ami-command-dispatch/pkg/meters"
	"github.com/chris/ami-command-dispatch/pkg/scheduler"
	dydbstore "github.com/chris/ami-command-dispatch/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	disp *dispatcher.Dispatcher
	log  zerolog.Logger
)

func init() {
	// Load environment variables from .env file (useful for local testing).
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log = applogger.New("ami-dispatch-lambda", cfg.App.LogLevel)

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

	channel := meters.NewBreakerChannel(
		meters.NewDeadlineChannel(&meters.LoopbackChannel{}, cfg.Dispatch.SendTimeout),
		cfg.Dispatch.BreakerTimeout,
	)

	disp = &dispatcher.Dispatcher{
		Store:       store,
		Channel:     channel,
		Queue:       queue,
		Logger:      log,
		RetryLimit:  cfg.Dispatch.RetryLimit,
		BackoffBase: cfg.Dispatch.BackoffBase,
	}
}

// HandleRequest processes SQS messages, each naming one command item to
// claim and dispatch.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, message := range sqsEvent.Records {
		var msg scheduler.DispatchMessage
		if err := json.Unmarshal([]byte(message.Body), &msg); err != nil {
			log.Error().Err(err).Str("message_id", message.MessageId).Msg("failed to unmarshal dispatch message")
			// Returning an error makes SQS retry the message, which is the
			// right call here.
			return err
		}

		if err := disp.ProcessItem(ctx, msg.ItemId); err != nil {
			log.Error().Err(err).Str("item_id", msg.ItemId).Msg("failed to process item")
			return err
		}
	}
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
