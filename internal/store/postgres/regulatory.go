package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

func (s *Store) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	filter, err := json.Marshal(sub.Filter)
	if err != nil {
		return fmt.Errorf("marshaling filter criteria: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO regulatory_subscriptions (agent_id, filter_criteria, created_at, updated_at)
		VALUES ($1,$2,$3,$3)
		ON CONFLICT (agent_id) DO UPDATE SET filter_criteria=$2, updated_at=$3`,
		sub.AgentID, filter, sub.UpdatedAt)
	if err != nil {
		return errs.NewStoreError("upsert_subscription", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, agentID string) (*models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT agent_id, filter_criteria, created_at, updated_at
		FROM regulatory_subscriptions WHERE agent_id=$1`, agentID)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.NewStoreError("get_subscription", err)
	}
	return sub, nil
}

func (s *Store) ListSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, filter_criteria, created_at, updated_at
		FROM regulatory_subscriptions ORDER BY agent_id`)
	if err != nil {
		return nil, errs.NewStoreError("list_subscriptions", err)
	}
	defer rows.Close()

	var out []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, errs.NewStoreError("list_subscriptions_scan", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSubscription(ctx context.Context, agentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM regulatory_subscriptions WHERE agent_id=$1`, agentID)
	if err != nil {
		return errs.NewStoreError("delete_subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var filter []byte
	if err := row.Scan(&sub.AgentID, &filter, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if len(filter) > 0 {
		if err := json.Unmarshal(filter, &sub.Filter); err != nil {
			return nil, fmt.Errorf("unmarshaling filter criteria: %w", err)
		}
	}
	return &sub, nil
}
