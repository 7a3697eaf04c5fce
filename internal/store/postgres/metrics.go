package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/internal/store"
)

// RecordMetric appends one observation to metric_history.
func (s *Store) RecordMetric(ctx context.Context, metricName string, value float64, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling metric data: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO metric_history (metric_name, value, data) VALUES ($1,$2,$3)`,
		metricName, value, payload)
	if err != nil {
		return errs.NewStoreError("record_metric", err)
	}
	return nil
}

// LatestSample returns the most recent observation for metricName.
func (s *Store) LatestSample(ctx context.Context, metricName string) (*store.MetricSample, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT metric_name, value, data, created_at FROM metric_history
		WHERE metric_name=$1 ORDER BY created_at DESC LIMIT 1`, metricName)

	var sample store.MetricSample
	var data []byte
	err := row.Scan(&sample.MetricName, &sample.Value, &data, &sample.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.NewStoreError("latest_sample", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sample.Data); err != nil {
			return nil, fmt.Errorf("unmarshaling metric data: %w", err)
		}
	}
	return &sample, nil
}

// Baseline computes the trailing 24h mean/std_dev for metricName,
// grounded on the original engine's get_baseline_data query.
func (s *Store) Baseline(ctx context.Context, metricName string) (*store.MetricBaseline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT AVG(value), STDDEV(value) FROM metric_history
		WHERE metric_name=$1 AND created_at >= NOW() - INTERVAL '24 hours'`, metricName)

	var mean, stdDev *float64
	if err := row.Scan(&mean, &stdDev); err != nil {
		return nil, errs.NewStoreError("baseline", err)
	}
	if mean == nil || stdDev == nil {
		return nil, errs.ErrNotFound
	}
	return &store.MetricBaseline{Mean: *mean, StdDev: *stdDev}, nil
}
