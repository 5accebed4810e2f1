package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	dynamodbsvc "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/ami-command-dispatch/pkg/config"
	"github.com/chris/ami-command-dispatch/pkg/dispatcher"
	"github.com/chris/ami-command-dispatch/pkg/events"
	applogger "github.com/chris/ami-command-dispatch/pkg/logger"
	"github.com/chris/ami-command-dispatch/pkg/meters"
	"github.com/chris/ami-command-dispatch/pkg/metrics"
	"github.com/chris/ami-command-dispatch/pkg/scheduler"
	dydbstore "github.com/chris/ami-command-dispatch/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Long-running polling dispatcher for environments without SQS-triggered
// lambdas (local development, on-prem deployments).
func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := applogger.New("ami-dispatcher", cfg.App.LogLevel)

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

	var publisher events.Publisher = &events.NoOpPublisher{}
	if cfg.Queue.EventsQueueURL != "" {
		publisher = events.NewSQSPublisher(sqsClient, cfg.Queue.EventsQueueURL)
	}

	channel := meters.NewBreakerChannel(
		meters.NewDeadlineChannel(&meters.LoopbackChannel{}, cfg.Dispatch.SendTimeout),
		cfg.Dispatch.BreakerTimeout,
	)

	registry := prometheus.NewRegistry()
	disp := &dispatcher.Dispatcher{
		Store:        store,
		Channel:      channel,
		Queue:        queue,
		Publisher:    publisher,
		Metrics:      metrics.NewDispatcherMetrics(registry),
		Logger:       log,
		RetryLimit:   cfg.Dispatch.RetryLimit,
		BackoffBase:  cfg.Dispatch.BackoffBase,
		BatchSize:    cfg.Dispatch.BatchSize,
		PollInterval: cfg.Dispatch.PollInterval,
		Workers:      cfg.Dispatch.Workers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":"+cfg.App.Port, mux); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().Int("workers", cfg.Dispatch.Workers).Msg("starting dispatcher")
	if err := disp.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("dispatcher exited with error")
	}
	log.Info().Msg("dispatcher stopped")
}
