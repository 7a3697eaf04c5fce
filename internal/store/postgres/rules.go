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

// CreateRule inserts a new alert rule.
func (s *Store) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	cond, err := json.Marshal(rule.Condition)
	if err != nil {
		return fmt.Errorf("marshaling condition: %w", err)
	}
	channels, err := json.Marshal(rule.ChannelIDs)
	if err != nil {
		return fmt.Errorf("marshaling channel ids: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO alert_rules
			(rule_id, rule_name, description, rule_type, severity, condition,
			 notification_channels, cooldown_minutes, is_enabled, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
		rule.RuleID, rule.Name, rule.Description, rule.Type, rule.Severity, cond,
		channels, rule.CooldownMinutes, rule.Enabled, rule.CreatedBy, rule.CreatedAt)
	if err != nil {
		return errs.NewStoreError("create_rule", err)
	}
	return nil
}

// GetRule fetches one rule by id.
func (s *Store) GetRule(ctx context.Context, ruleID string) (*models.AlertRule, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT rule_id, rule_name, description, rule_type, severity, condition,
		       notification_channels, cooldown_minutes, is_enabled, created_by,
		       created_at, updated_at, last_triggered_at
		FROM alert_rules WHERE rule_id = $1`, ruleID)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.NewStoreError("get_rule", err)
	}
	return rule, nil
}

// ListRules lists rules matching the given filters.
func (s *Store) ListRules(ctx context.Context, filters models.RuleFilters) ([]*models.AlertRule, error) {
	query := `
		SELECT rule_id, rule_name, description, rule_type, severity, condition,
		       notification_channels, cooldown_minutes, is_enabled, created_by,
		       created_at, updated_at, last_triggered_at
		FROM alert_rules WHERE TRUE`
	args := []any{}
	if filters.EnabledOnly {
		query += " AND is_enabled = TRUE"
	}
	if filters.Type != "" {
		args = append(args, filters.Type)
		query += fmt.Sprintf(" AND rule_type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStoreError("list_rules", err)
	}
	defer rows.Close()

	var out []*models.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, errs.NewStoreError("list_rules_scan", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// UpdateRule overwrites a rule's mutable fields.
func (s *Store) UpdateRule(ctx context.Context, rule *models.AlertRule) error {
	cond, err := json.Marshal(rule.Condition)
	if err != nil {
		return fmt.Errorf("marshaling condition: %w", err)
	}
	channels, err := json.Marshal(rule.ChannelIDs)
	if err != nil {
		return fmt.Errorf("marshaling channel ids: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE alert_rules SET
			rule_name=$2, description=$3, rule_type=$4, severity=$5, condition=$6,
			notification_channels=$7, cooldown_minutes=$8, is_enabled=$9, updated_at=$10
		WHERE rule_id=$1`,
		rule.RuleID, rule.Name, rule.Description, rule.Type, rule.Severity, cond,
		channels, rule.CooldownMinutes, rule.Enabled, time.Now())
	if err != nil {
		return errs.NewStoreError("update_rule", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteRule removes a rule by id.
func (s *Store) DeleteRule(ctx context.Context, ruleID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_rules WHERE rule_id=$1`, ruleID)
	if err != nil {
		return errs.NewStoreError("delete_rule", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MarkTriggered stamps a rule's last_triggered_at for cooldown enforcement.
func (s *Store) MarkTriggered(ctx context.Context, ruleID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alert_rules SET last_triggered_at=$2 WHERE rule_id=$1`, ruleID, at)
	if err != nil {
		return errs.NewStoreError("mark_triggered", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.AlertRule, error) {
	var r models.AlertRule
	var cond, channels []byte
	if err := row.Scan(
		&r.RuleID, &r.Name, &r.Description, &r.Type, &r.Severity, &cond,
		&channels, &r.CooldownMinutes, &r.Enabled, &r.CreatedBy,
		&r.CreatedAt, &r.UpdatedAt, &r.LastTriggeredAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cond, &r.Condition); err != nil {
		return nil, fmt.Errorf("unmarshaling condition: %w", err)
	}
	if err := json.Unmarshal(channels, &r.ChannelIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling channel ids: %w", err)
	}
	return &r, nil
}
