package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

func (s *Store) CreateScanJob(ctx context.Context, job *models.ScanJob) error {
	filters, err := json.Marshal(job.Filters)
	if err != nil {
		return fmt.Errorf("marshaling scan filters: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO fraud_scan_job_queue
			(job_id, status, priority, filters, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		job.JobID, job.Status, job.Priority, filters, job.CreatedBy, job.CreatedAt)
	if err != nil {
		return errs.NewStoreError("create_scan_job", err)
	}
	return nil
}

func (s *Store) GetScanJob(ctx context.Context, jobID string) (*models.ScanJob, error) {
	row := s.pool.QueryRow(ctx, scanJobSelect+" WHERE job_id=$1", jobID)
	job, err := scanScanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.NewStoreError("get_scan_job", err)
	}
	return job, nil
}

func (s *Store) ListScanJobs(ctx context.Context, filters models.ScanFilters) ([]*models.ScanJob, error) {
	query := scanJobSelect + " WHERE TRUE"
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStoreError("list_scan_jobs", err)
	}
	defer rows.Close()

	var out []*models.ScanJob
	for rows.Next() {
		job, err := scanScanJob(rows)
		if err != nil {
			return nil, errs.NewStoreError("list_scan_jobs_scan", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *Store) UpdateScanJob(ctx context.Context, job *models.ScanJob) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE fraud_scan_job_queue SET
			status=$2, worker_id=$3, claimed_at=$4, started_at=$5, completed_at=$6,
			progress=$7, transactions_total=$8, transactions_processed=$9,
			transactions_flagged=$10, error_message=$11
		WHERE job_id=$1`,
		job.JobID, job.Status, job.WorkerID, job.ClaimedAt, job.StartedAt, job.CompletedAt,
		job.Progress, job.TransactionsTotal, job.TransactionsProcessed,
		job.TransactionsFlagged, job.Error)
	if err != nil {
		return errs.NewStoreError("update_scan_job", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ClaimNextJob atomically claims the highest-priority queued job using
// FOR UPDATE SKIP LOCKED, mirroring pkg/queue's session claim.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string) (*models.ScanJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errs.NewStoreError("claim_next_job_begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT job_id, status, priority, filters, created_by, worker_id, claimed_at,
		       started_at, completed_at, progress, transactions_total,
		       transactions_processed, transactions_flagged, error_message, created_at
		FROM fraud_scan_job_queue
		WHERE status = $1
		ORDER BY priority DESC, created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, models.ScanQueued)
	job, err := scanScanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.NewStoreError("claim_next_job_query", err)
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `
		UPDATE fraud_scan_job_queue SET status=$2, worker_id=$3, claimed_at=$4, started_at=$4
		WHERE job_id=$1`, job.JobID, models.ScanProcessing, workerID, now); err != nil {
		return nil, errs.NewStoreError("claim_next_job_update", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.NewStoreError("claim_next_job_commit", err)
	}

	job.Status = models.ScanProcessing
	job.WorkerID = workerID
	job.ClaimedAt = &now
	job.StartedAt = &now
	return job, nil
}

// ReclaimOrphans resets jobs stuck in processing past staleAfter,
// using the teacher's OrphanThreshold idiom (pkg/queue/orphan.go).
func (s *Store) ReclaimOrphans(ctx context.Context, staleAfter time.Duration) (int, error) {
	cutoff := time.Now().Add(-staleAfter)
	tag, err := s.pool.Exec(ctx, `
		UPDATE fraud_scan_job_queue
		SET status=$1, worker_id='', claimed_at=NULL, started_at=NULL
		WHERE status=$2 AND claimed_at < $3`,
		models.ScanQueued, models.ScanProcessing, cutoff)
	if err != nil {
		return 0, errs.NewStoreError("reclaim_orphans", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) ListFraudRules(ctx context.Context, enabledOnly bool) ([]*models.FraudRule, error) {
	query := `
		SELECT rule_id, rule_name, rule_definition, rule_type, severity, priority,
		       is_enabled, alert_count, last_triggered_at
		FROM fraud_rules WHERE TRUE`
	if enabledOnly {
		query += " AND is_enabled = TRUE"
	}
	query += " ORDER BY priority DESC"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, errs.NewStoreError("list_fraud_rules", err)
	}
	defer rows.Close()

	var out []*models.FraudRule
	for rows.Next() {
		var r models.FraudRule
		if err := rows.Scan(&r.RuleID, &r.Name, &r.Definition, &r.Type, &r.Severity,
			&r.Priority, &r.Enabled, &r.AlertCount, &r.LastTriggeredAt); err != nil {
			return nil, errs.NewStoreError("list_fraud_rules_scan", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) CreateFraudAlert(ctx context.Context, alert *models.FraudAlert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fraud_alerts
			(alert_id, transaction_id, rule_id, severity, alert_status, flagged_amount,
			 flagged_currency, from_account, to_account, transaction_type, alert_message, detected_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		alert.AlertID, alert.TransactionID, alert.RuleID, alert.Severity, alert.Status,
		alert.FlaggedAmount, alert.FlaggedCurrency, alert.FromAccount, alert.ToAccount,
		alert.TransactionType, alert.Message, alert.DetectedAt)
	if err != nil {
		return errs.NewStoreError("create_fraud_alert", err)
	}
	return nil
}

func (s *Store) MarkFraudRuleTriggered(ctx context.Context, ruleID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE fraud_rules SET last_triggered_at=$2, alert_count=alert_count+1 WHERE rule_id=$1`,
		ruleID, at)
	if err != nil {
		return errs.NewStoreError("mark_fraud_rule_triggered", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const scanJobSelect = `
	SELECT job_id, status, priority, filters, created_by, worker_id, claimed_at,
	       started_at, completed_at, progress, transactions_total,
	       transactions_processed, transactions_flagged, error_message, created_at
	FROM fraud_scan_job_queue`

func scanScanJob(row rowScanner) (*models.ScanJob, error) {
	var j models.ScanJob
	var filters []byte
	if err := row.Scan(
		&j.JobID, &j.Status, &j.Priority, &filters, &j.CreatedBy, &j.WorkerID,
		&j.ClaimedAt, &j.StartedAt, &j.CompletedAt, &j.Progress, &j.TransactionsTotal,
		&j.TransactionsProcessed, &j.TransactionsFlagged, &j.Error, &j.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &j.Filters); err != nil {
			return nil, fmt.Errorf("unmarshaling scan filters: %w", err)
		}
	}
	return &j, nil
}
