package main

import (
	"context"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/ami-command-dispatch/pkg/authz"
	"github.com/chris/ami-command-dispatch/pkg/config"
	"github.com/chris/ami-command-dispatch/pkg/handlers/items"
	"github.com/chris/ami-command-dispatch/pkg/handlers/ledger"
	"github.com/chris/ami-command-dispatch/pkg/handlers/requests"
	applogger "github.com/chris/ami-command-dispatch/pkg/logger"
	appmiddleware "github.com/chris/ami-command-dispatch/pkg/middleware"
	"github.com/chris/ami-command-dispatch/pkg/scheduler"
	dydbstore "github.com/chris/ami-command-dispatch/pkg/storage/dynamodb"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load environment variables from .env file (absent in deployed
	// environments, where configuration comes from the runtime).
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := applogger.New("ami-api", cfg.App.LogLevel)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	dbClient := dynamodb.NewFromConfig(awsCfg)
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

	authorizer := authz.NewStaticAuthorizer(cfg.Approval.Approvers)

	requestsHandler := requests.NewRequestsHandler(store, queue, authorizer, log)
	itemsHandler := items.NewItemsHandler(store, authorizer, log)
	ledgerHandler := ledger.NewLedgerHandler(store, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(appmiddleware.NewStructuredLogger(log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.Route("/requests", func(r chi.Router) {
		r.Post("/", requestsHandler.CreateRequest)
		r.Get("/{id}", requestsHandler.GetRequest)
		r.Post("/{id}/submit", requestsHandler.SubmitRequest)
		r.Post("/{id}/approve", requestsHandler.ApproveRequest)
		r.Post("/{id}/reject", requestsHandler.RejectRequest)
		r.Get("/{id}/items", requestsHandler.ListItems)
	})

	router.Route("/items", func(r chi.Router) {
		r.Get("/", itemsHandler.ListByState)
		r.Get("/{id}", itemsHandler.GetItem)
		r.Get("/{id}/logs", itemsHandler.ListLogs)
		r.Post("/{id}/reject", itemsHandler.RejectItem)
	})

	router.Route("/consumers/{id}", func(r chi.Router) {
		r.Post("/balance", ledgerHandler.CreateBalance)
		r.Get("/balance", ledgerHandler.GetBalance)
		r.Post("/ledger", ledgerHandler.RecordEntry)
		r.Get("/ledger", ledgerHandler.ListEntries)
	})

	log.Info().Str("port", cfg.App.Port).Msg("starting server")
	if err := http.ListenAndServe(":"+cfg.App.Port, router); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
