// Package scan implements the Fraud Scan Worker Pool: a pool of
// workers that atomically claim queued scan jobs, stream matching
// transactions through fraud-rule evaluation, and report progress —
// directly adapted from pkg/queue's pool/worker/orphan split.
package scan

import (
	"context"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// TransactionSource streams the transactions matching a job's
// filters. The persistence engine that backs it is out of scope
// (spec.md §1 names "persistence-engine internals" a non-goal); the
// worker pool only depends on this narrow interface.
type TransactionSource interface {
	// CountMatching returns the total rows a job's filters would scan,
	// written back to transactions_total before streaming begins.
	CountMatching(ctx context.Context, filters models.ScanFilters) (int, error)
	// StreamMatching calls visit once per transaction in filter order.
	// A visit error aborts the stream.
	StreamMatching(ctx context.Context, filters models.ScanFilters, visit func(models.Transaction) error) error
}

// Config controls pool sizing and claim/orphan cadence.
type Config struct {
	WorkerCount             int           `yaml:"worker_count"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`
	OrphanThreshold         time.Duration `yaml:"orphan_threshold"`
	ProgressReportEvery     int           `yaml:"progress_report_every"`
}

// DefaultConfig matches spec.md §4.5's defaults: 5s claim retry,
// progress reported every 100 transactions.
func DefaultConfig() Config {
	return Config{
		WorkerCount:             3,
		PollInterval:            5 * time.Second,
		OrphanDetectionInterval: time.Minute,
		OrphanThreshold:         10 * time.Minute,
		ProgressReportEvery:     100,
	}
}

// WorkerHealth mirrors queue.WorkerHealth for the scan pool.
type WorkerHealth struct {
	ID                string
	Status            string
	CurrentJobID       string
	JobsProcessed      int
	LastActivity       time.Time
}

// PoolHealth mirrors queue.PoolHealth for the scan pool.
type PoolHealth struct {
	TotalWorkers     int
	ActiveWorkers    int
	WorkerStats      []WorkerHealth
	LastOrphanScan   time.Time
	OrphansRecovered int
}
