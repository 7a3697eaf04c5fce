package postgres

import (
	"context"
	"time"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

func (s *Store) CreateAttempt(ctx context.Context, attempt *models.NotificationAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_notifications
			(notification_id, incident_id, channel_id, sent_at, delivery_status,
			 retry_count, error_message, next_retry_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		attempt.NotificationID, attempt.IncidentID, attempt.ChannelID, attempt.SentAt,
		attempt.Status, attempt.RetryCount, attempt.Error, attempt.NextRetryAt, attempt.CreatedAt)
	if err != nil {
		return errs.NewStoreError("create_attempt", err)
	}
	return nil
}

func (s *Store) UpdateAttempt(ctx context.Context, attempt *models.NotificationAttempt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alert_notifications SET
			sent_at=$2, delivery_status=$3, retry_count=$4, error_message=$5, next_retry_at=$6
		WHERE notification_id=$1`,
		attempt.NotificationID, attempt.SentAt, attempt.Status, attempt.RetryCount,
		attempt.Error, attempt.NextRetryAt)
	if err != nil {
		return errs.NewStoreError("update_attempt", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ClaimDueRetries atomically claims up to limit due retries using
// FOR UPDATE SKIP LOCKED, so multiple notification workers never
// double-send the same attempt.
func (s *Store) ClaimDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.NotificationAttempt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errs.NewStoreError("claim_due_retries_begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT notification_id, incident_id, channel_id, sent_at, delivery_status,
		       retry_count, error_message, next_retry_at, created_at
		FROM alert_notifications
		WHERE delivery_status = $1 AND next_retry_at <= $2
		ORDER BY next_retry_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`, models.DeliveryRetrying, now, limit)
	if err != nil {
		return nil, errs.NewStoreError("claim_due_retries_query", err)
	}

	var claimed []*models.NotificationAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			rows.Close()
			return nil, errs.NewStoreError("claim_due_retries_scan", err)
		}
		claimed = append(claimed, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errs.NewStoreError("claim_due_retries_rows", err)
	}

	// Mark claimed rows pending so a concurrent claimer (after this
	// transaction commits and releases its locks) does not pick the
	// same row again before the dispatcher records a terminal status.
	for _, a := range claimed {
		if _, err := tx.Exec(ctx, `UPDATE alert_notifications SET delivery_status=$2 WHERE notification_id=$1`,
			a.NotificationID, models.DeliveryPending); err != nil {
			return nil, errs.NewStoreError("claim_due_retries_mark", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.NewStoreError("claim_due_retries_commit", err)
	}
	return claimed, nil
}

func (s *Store) ListByIncident(ctx context.Context, incidentID string) ([]*models.NotificationAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT notification_id, incident_id, channel_id, sent_at, delivery_status,
		       retry_count, error_message, next_retry_at, created_at
		FROM alert_notifications WHERE incident_id=$1 ORDER BY created_at`, incidentID)
	if err != nil {
		return nil, errs.NewStoreError("list_by_incident", err)
	}
	defer rows.Close()

	var out []*models.NotificationAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, errs.NewStoreError("list_by_incident_scan", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(row rowScanner) (*models.NotificationAttempt, error) {
	var a models.NotificationAttempt
	if err := row.Scan(
		&a.NotificationID, &a.IncidentID, &a.ChannelID, &a.SentAt, &a.Status,
		&a.RetryCount, &a.Error, &a.NextRetryAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
