package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// ErrNoJobsAvailable signals the claim query returned nothing,
// matching queue.ErrNoSessionsAvailable's idiom.
var ErrNoJobsAvailable = errors.New("scan: no jobs available")

// worker is a single scan worker that polls for and processes jobs.
type worker struct {
	id      string
	store   store.ScanStore
	source  TransactionSource
	cfg     Config
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu            sync.RWMutex
	status        string
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

func newWorker(id string, scanStore store.ScanStore, source TransactionSource, cfg Config) *worker {
	return &worker{
		id:           id,
		store:        scanStore,
		source:       source,
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		status:       "idle",
		lastActivity: time.Now(),
	}
}

func (w *worker) start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *worker) stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *worker) health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID: w.id, Status: w.status, CurrentJobID: w.currentJobID,
		JobsProcessed: w.jobsProcessed, LastActivity: w.lastActivity,
	}
}

func (w *worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id)
	log.Info("scan worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("scan worker shutting down")
			return
		case <-ctx.Done():
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) {
					w.sleep(w.cfg.PollInterval)
					continue
				}
				log.Error("scan job processing error", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *worker) pollAndProcess(ctx context.Context) error {
	job, err := w.store.ClaimNextJob(ctx, w.id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return ErrNoJobsAvailable
		}
		return fmt.Errorf("claiming scan job: %w", err)
	}

	w.setStatus("working", job.JobID)
	defer w.setStatus("idle", "")

	log := slog.With("worker_id", w.id, "job_id", job.JobID)
	log.Info("scan job claimed")

	if err := w.execute(ctx, job); err != nil {
		now := time.Now()
		job.Status = models.ScanFailed
		job.Error = err.Error()
		job.CompletedAt = &now
		if updErr := w.store.UpdateScanJob(ctx, job); updErr != nil {
			log.Error("failed to persist job failure", "error", updErr)
		}
		return nil
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()
	log.Info("scan job completed", "flagged", job.TransactionsFlagged)
	return nil
}

func (w *worker) execute(ctx context.Context, job *models.ScanJob) error {
	total, err := w.source.CountMatching(ctx, job.Filters)
	if err != nil {
		return fmt.Errorf("counting matching transactions: %w", err)
	}
	job.TransactionsTotal = total
	if err := w.store.UpdateScanJob(ctx, job); err != nil {
		return fmt.Errorf("writing back transactions_total: %w", err)
	}

	rules, err := w.store.ListFraudRules(ctx, true)
	if err != nil {
		return fmt.Errorf("loading fraud rules: %w", err)
	}

	processed, flagged := 0, 0
	err = w.source.StreamMatching(ctx, job.Filters, func(txn models.Transaction) error {
		for _, rule := range rules {
			if !evaluateFraudRule(rule, txn) {
				continue
			}
			alert := &models.FraudAlert{
				AlertID:         uuid.NewString(),
				TransactionID:   txn.TransactionID,
				RuleID:          rule.RuleID,
				Severity:        rule.Severity,
				Status:          models.FraudAlertOpen,
				FlaggedAmount:   txn.Amount,
				FlaggedCurrency: txn.Currency,
				FromAccount:     txn.FromAccount,
				ToAccount:       txn.ToAccount,
				TransactionType: txn.Type,
				Message:         fmt.Sprintf("fraud rule %q fired", rule.Name),
				DetectedAt:      time.Now(),
			}
			if err := w.store.CreateFraudAlert(ctx, alert); err != nil {
				return fmt.Errorf("persisting fraud alert: %w", err)
			}
			if err := w.store.MarkFraudRuleTriggered(ctx, rule.RuleID, time.Now()); err != nil {
				slog.Error("failed to update fraud rule trigger counters", "rule_id", rule.RuleID, "error", err)
			}
			flagged++
		}

		processed++
		if processed%w.cfg.ProgressReportEvery == 0 {
			job.TransactionsProcessed = processed
			job.TransactionsFlagged = flagged
			if total > 0 {
				job.Progress = float64(processed) / float64(total) * 100
			}
			if err := w.store.UpdateScanJob(ctx, job); err != nil {
				slog.Error("failed to persist scan progress", "job_id", job.JobID, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("streaming transactions: %w", err)
	}

	now := time.Now()
	job.TransactionsProcessed = processed
	job.TransactionsFlagged = flagged
	job.Progress = 100
	job.Status = models.ScanCompleted
	job.CompletedAt = &now
	return w.store.UpdateScanJob(ctx, job)
}

func (w *worker) setStatus(status, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
