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

func (s *Store) CreateIncident(ctx context.Context, incident *models.AlertIncident) error {
	data, err := json.Marshal(incident.Data)
	if err != nil {
		return fmt.Errorf("marshaling incident data: %w", err)
	}
	notifStatus, err := json.Marshal(incident.NotificationStatus)
	if err != nil {
		return fmt.Errorf("marshaling notification status: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO alert_incidents
			(incident_id, rule_id, severity, title, message, incident_data,
			 triggered_at, status, notification_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		incident.IncidentID, incident.RuleID, incident.Severity, incident.Title,
		incident.Message, data, incident.TriggeredAt, incident.Status, notifStatus)
	if err != nil {
		return errs.NewStoreError("create_incident", err)
	}
	return nil
}

func (s *Store) GetIncident(ctx context.Context, incidentID string) (*models.AlertIncident, error) {
	row := s.pool.QueryRow(ctx, incidentSelect+" WHERE incident_id = $1", incidentID)
	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.NewStoreError("get_incident", err)
	}
	return inc, nil
}

func (s *Store) ListIncidents(ctx context.Context, filters models.IncidentFilters) ([]*models.AlertIncident, error) {
	query := incidentSelect + " WHERE TRUE"
	args := []any{}
	if filters.RuleID != "" {
		args = append(args, filters.RuleID)
		query += fmt.Sprintf(" AND rule_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY triggered_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStoreError("list_incidents", err)
	}
	defer rows.Close()

	var out []*models.AlertIncident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, errs.NewStoreError("list_incidents_scan", err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (s *Store) UpdateIncident(ctx context.Context, incident *models.AlertIncident) error {
	notifStatus, err := json.Marshal(incident.NotificationStatus)
	if err != nil {
		return fmt.Errorf("marshaling notification status: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE alert_incidents SET
			status=$2, acknowledged_at=$3, acknowledged_by=$4,
			resolved_at=$5, resolved_by=$6, resolution_notes=$7, notification_status=$8
		WHERE incident_id=$1`,
		incident.IncidentID, incident.Status, incident.AckAt, incident.AckBy,
		incident.ResolvedAt, incident.ResolvedBy, incident.ResolutionNotes, notifStatus)
	if err != nil {
		return errs.NewStoreError("update_incident", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const incidentSelect = `
	SELECT incident_id, rule_id, severity, title, message, incident_data,
	       triggered_at, acknowledged_at, acknowledged_by, resolved_at,
	       resolved_by, resolution_notes, status, notification_status
	FROM alert_incidents`

func scanIncident(row rowScanner) (*models.AlertIncident, error) {
	var i models.AlertIncident
	var data, notifStatus []byte
	if err := row.Scan(
		&i.IncidentID, &i.RuleID, &i.Severity, &i.Title, &i.Message, &data,
		&i.TriggeredAt, &i.AckAt, &i.AckBy, &i.ResolvedAt, &i.ResolvedBy,
		&i.ResolutionNotes, &i.Status, &notifStatus,
	); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &i.Data); err != nil {
			return nil, fmt.Errorf("unmarshaling incident data: %w", err)
		}
	}
	if len(notifStatus) > 0 {
		if err := json.Unmarshal(notifStatus, &i.NotificationStatus); err != nil {
			return nil, fmt.Errorf("unmarshaling notification status: %w", err)
		}
	}
	return &i, nil
}
