package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/regulens/alertfabric/internal/condition"
	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

func evaluatorFor(ruleType models.RuleType) (evaluator, error) {
	switch ruleType {
	case models.RuleTypeThreshold:
		return thresholdEvaluator{}, nil
	case models.RuleTypePattern:
		return patternEvaluator{}, nil
	case models.RuleTypeAnomaly:
		return anomalyEvaluator{}, nil
	case models.RuleTypeScheduled:
		return scheduledEvaluator{parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		)}, nil
	default:
		return nil, fmt.Errorf("rules: unknown rule type %q", ruleType)
	}
}

// thresholdEvaluator compares the metric's latest value against
// rule.Condition.Threshold. Grounded on alert_evaluation_engine.cpp's
// evaluate_condition/compare_values.
type thresholdEvaluator struct{}

func (thresholdEvaluator) evaluate(ctx context.Context, rule *models.AlertRule, metrics store.MetricProvider) (bool, map[string]any, error) {
	sample, err := metrics.LatestSample(ctx, rule.Condition.Metric)
	if err != nil {
		return false, nil, fmt.Errorf("collecting metric %q: %w", rule.Condition.Metric, err)
	}
	fire, err := condition.CompareThreshold(sample.Value, rule.Condition.Operator, rule.Condition.Threshold)
	if err != nil {
		return false, nil, err
	}
	return fire, map[string]any{
		"metric":    rule.Condition.Metric,
		"value":     sample.Value,
		"operator":  rule.Condition.Operator,
		"threshold": rule.Condition.Threshold,
	}, nil
}

// patternEvaluator regex-matches the metric's latest JSON-serialized
// data slice. An invalid pattern is logged and treated as no-fire,
// matching evaluate_pattern_match's try/catch behavior exactly.
type patternEvaluator struct{}

func (patternEvaluator) evaluate(ctx context.Context, rule *models.AlertRule, metrics store.MetricProvider) (bool, map[string]any, error) {
	sample, err := metrics.LatestSample(ctx, rule.Condition.Metric)
	if err != nil {
		return false, nil, fmt.Errorf("collecting metric %q: %w", rule.Condition.Metric, err)
	}
	raw, err := json.Marshal(sample.Data)
	if err != nil {
		return false, nil, fmt.Errorf("serializing metric data: %w", err)
	}
	matched, err := condition.MatchPattern(rule.Condition.Pattern, string(raw))
	if err != nil {
		slog.Error("invalid pattern in rule condition", "rule_id", rule.RuleID, "pattern", rule.Condition.Pattern, "error", err)
		return false, nil, nil
	}
	return matched, map[string]any{"metric": rule.Condition.Metric, "pattern": rule.Condition.Pattern, "data": sample.Data}, nil
}

// anomalyEvaluator compares the metric's latest value against its
// trailing 24h baseline via a z-score check.
type anomalyEvaluator struct{}

func (anomalyEvaluator) evaluate(ctx context.Context, rule *models.AlertRule, metrics store.MetricProvider) (bool, map[string]any, error) {
	sample, err := metrics.LatestSample(ctx, rule.Condition.Metric)
	if err != nil {
		return false, nil, fmt.Errorf("collecting metric %q: %w", rule.Condition.Metric, err)
	}
	baseline, err := metrics.Baseline(ctx, rule.Condition.Metric)
	if err != nil {
		return false, nil, fmt.Errorf("collecting baseline for %q: %w", rule.Condition.Metric, err)
	}
	fire := condition.IsAnomaly(condition.Baseline{Mean: baseline.Mean, StdDev: baseline.StdDev}, sample.Value, rule.Condition.Sensitivity)
	return fire, map[string]any{
		"metric": rule.Condition.Metric,
		"value":  sample.Value,
		"mean":   baseline.Mean,
		"std_dev": baseline.StdDev,
	}, nil
}

// scheduledEvaluator fires when rule.Condition.Schedule's cron
// expression next-matches within the current minute. The parser is
// used purely for expression matching (cron.Next(now) compared to
// now) — the engine's own loop still drives ticking, no daemon
// scheduling inside robfig/cron.
type scheduledEvaluator struct {
	parser cron.Parser
}

func (e scheduledEvaluator) evaluate(ctx context.Context, rule *models.AlertRule, metrics store.MetricProvider) (bool, map[string]any, error) {
	schedule, err := e.parser.Parse(rule.Condition.Schedule)
	if err != nil {
		return false, nil, fmt.Errorf("parsing schedule %q: %w", rule.Condition.Schedule, err)
	}
	now := time.Now()
	windowStart := now.Truncate(time.Minute)
	next := schedule.Next(windowStart.Add(-time.Second))
	fire := !next.After(now) && next.Truncate(time.Minute).Equal(windowStart)
	return fire, map[string]any{"schedule": rule.Condition.Schedule, "matched_at": now}, nil
}
