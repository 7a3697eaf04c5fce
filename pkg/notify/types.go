// Package notify implements the Notification Service: bounded-concurrency
// delivery of incident alerts through channel-typed adapters, with
// persisted delivery attempts and exponential-backoff retry.
package notify

import (
	"context"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// Request is one unit of notification work handed to a worker.
type Request struct {
	NotificationID string
	IncidentID     string
	Channel        *models.NotificationChannel
	Alert          models.AlertPayload
}

// Dispatcher is the tagged-variant interface every channel type
// implements: one small adapter per transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// Config controls the service's worker pool and retry cadence.
type Config struct {
	WorkerCount     int           `yaml:"worker_count"`
	QueueCapacity   int           `yaml:"queue_capacity"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
	RetryBatchLimit int           `yaml:"retry_batch_limit"`
	MaxRetries      int           `yaml:"max_retries"`
	BaseRetryDelay  time.Duration `yaml:"base_retry_delay"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"-"`
	SMTPFrom     string `yaml:"smtp_from"`

	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// DefaultConfig matches spec.md §4.2's defaults: 5 workers, 30s retry
// poll, 10 rows reclaimed per pass.
func DefaultConfig() Config {
	return Config{
		WorkerCount:     5,
		QueueCapacity:   256,
		RetryInterval:   30 * time.Second,
		RetryBatchLimit: 10,
		MaxRetries:      5,
		BaseRetryDelay:  30 * time.Second,
		HTTPTimeout:     10 * time.Second,
	}
}

// Metrics are the service's exposed counters (spec §4.2).
type Metrics struct {
	TotalSent          int64
	TotalSucceeded      int64
	TotalFailed        int64
	RetriesAttempted   int64
	PerChannelType     map[models.ChannelType]int64
	RollingAvgDelivery time.Duration
}
