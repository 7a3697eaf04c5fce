package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

// AppendEvent durably records an activity event. The in-memory ring
// feed (pkg/activity) is the live-query path; this is the audit trail
// for export_activities and historical queries past the ring's bound.
func (s *Store) AppendEvent(ctx context.Context, event *models.AgentActivityEvent) error {
	meta, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO agent_activity_events
			(event_id, agent_id, activity_type, severity, title, description, metadata, decision, "timestamp")
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		event.EventID, event.AgentID, event.ActivityType, event.Severity,
		event.Title, event.Description, meta, event.Decision, event.Timestamp)
	if err != nil {
		return errs.NewStoreError("append_activity_event", err)
	}
	return nil
}

// QueryEvents queries the durable activity log. AND across populated
// filter fields, OR within a field, matching pkg/activity's in-memory
// filter semantics.
func (s *Store) QueryEvents(ctx context.Context, filter models.ActivityFilter) ([]*models.AgentActivityEvent, error) {
	query := `
		SELECT event_id, agent_id, activity_type, severity, title, description, metadata, decision, "timestamp"
		FROM agent_activity_events WHERE TRUE`
	args := []any{}

	if len(filter.AgentIDs) > 0 {
		args = append(args, filter.AgentIDs)
		query += fmt.Sprintf(" AND agent_id = ANY($%d)", len(args))
	}
	if len(filter.ActivityTypes) > 0 {
		args = append(args, filter.ActivityTypes)
		query += fmt.Sprintf(" AND activity_type = ANY($%d)", len(args))
	}
	if len(filter.Severities) > 0 {
		args = append(args, filter.Severities)
		query += fmt.Sprintf(" AND severity = ANY($%d)", len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(` AND "timestamp" >= $%d`, len(args))
	}
	if filter.Until != nil {
		args = append(args, *filter.Until)
		query += fmt.Sprintf(` AND "timestamp" <= $%d`, len(args))
	}
	if filter.TextContains != "" {
		args = append(args, "%"+strings.ToLower(filter.TextContains)+"%")
		query += fmt.Sprintf(" AND (lower(title) LIKE $%d OR lower(description) LIKE $%d)", len(args), len(args))
	}
	query += ` ORDER BY "timestamp" DESC`
	if filter.MaxResults > 0 {
		args = append(args, filter.MaxResults)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStoreError("query_activity_events", err)
	}
	defer rows.Close()

	var out []*models.AgentActivityEvent
	for rows.Next() {
		var e models.AgentActivityEvent
		var meta []byte
		if err := rows.Scan(&e.EventID, &e.AgentID, &e.ActivityType, &e.Severity,
			&e.Title, &e.Description, &meta, &e.Decision, &e.Timestamp); err != nil {
			return nil, errs.NewStoreError("query_activity_events_scan", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
