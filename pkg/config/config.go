// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the services.
const EnvPrefix = "AMI"

// Config is the root configuration shared by all binaries.
type Config struct {
	App      AppConfig
	DynamoDB DynamoDBConfig
	Queue    QueueConfig
	Dispatch DispatchConfig
	Approval ApprovalConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// AppConfig carries the shared service settings.
type AppConfig struct {
	Port     string `envconfig:"AMI_HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"AMI_LOG_LEVEL" default:"info"`
}

// DynamoDBConfig names the backing tables.
type DynamoDBConfig struct {
	RequestsTable string `envconfig:"AMI_DYNAMODB_REQUESTS_TABLE" required:"true"`
	ItemsTable    string `envconfig:"AMI_DYNAMODB_ITEMS_TABLE" required:"true"`
	LogsTable     string `envconfig:"AMI_DYNAMODB_LOGS_TABLE" required:"true"`
	MetersTable   string `envconfig:"AMI_DYNAMODB_METERS_TABLE" required:"true"`
	BalancesTable string `envconfig:"AMI_DYNAMODB_BALANCES_TABLE" required:"true"`
	LedgerTable   string `envconfig:"AMI_DYNAMODB_LEDGER_TABLE" required:"true"`
}

// QueueConfig names the SQS queues.
type QueueConfig struct {
	DispatchQueueURL string `envconfig:"AMI_SQS_DISPATCH_QUEUE_URL" required:"true"`
	EventsQueueURL   string `envconfig:"AMI_SQS_EVENTS_QUEUE_URL"`
}

// DispatchConfig tunes the dispatcher workers.
type DispatchConfig struct {
	RetryLimit     int           `envconfig:"AMI_DISPATCH_RETRY_LIMIT" default:"3"`
	SendTimeout    time.Duration `envconfig:"AMI_DISPATCH_SEND_TIMEOUT" default:"10s"`
	BackoffBase    time.Duration `envconfig:"AMI_DISPATCH_BACKOFF_BASE" default:"5s"`
	BreakerTimeout time.Duration `envconfig:"AMI_DISPATCH_BREAKER_TIMEOUT" default:"60s"`
	BatchSize      int32         `envconfig:"AMI_DISPATCH_BATCH_SIZE" default:"10"`
	PollInterval   time.Duration `envconfig:"AMI_DISPATCH_POLL_INTERVAL" default:"2s"`
	Workers        int           `envconfig:"AMI_DISPATCH_WORKERS" default:"4"`
	StuckAge       time.Duration `envconfig:"AMI_DISPATCH_STUCK_AGE" default:"20m"`
}

// ApprovalConfig carries the static approver allowlist.
type ApprovalConfig struct {
	Approvers []string `envconfig:"AMI_APPROVERS"`
}
