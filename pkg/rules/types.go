// Package rules implements the Rule Evaluation Engine: a periodic
// loop that evaluates every enabled AlertRule, dispatches to a
// per-type evaluator, and raises incidents with notification fan-out
// when a rule fires.
package rules

import (
	"context"
	"sync"
	"time"

	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// IncidentRaiser is how the engine hands a fired rule off to the rest
// of the system — creating the incident record and fanning out
// notifications to the rule's configured channels. Implemented by
// pkg/notify's Service in production wiring (cmd/alertd).
type IncidentRaiser interface {
	RaiseIncident(ctx context.Context, rule *models.AlertRule, data map[string]any) error
}

// Config controls the engine's loop cadence.
type Config struct {
	EvaluationInterval time.Duration `yaml:"evaluation_interval"`
}

// DefaultConfig matches spec.md §4.1's default 30s evaluation interval.
func DefaultConfig() Config {
	return Config{EvaluationInterval: 30 * time.Second}
}

// EvaluationMetrics are the engine's exposed counters (spec §4.1).
type EvaluationMetrics struct {
	TotalEvaluations int64
	RulesEvaluated   int64
	AlertsTriggered  int64
	EvaluationErrors int64
	LastDuration     time.Duration
	LastRunAt        time.Time
}

// metricsTracker guards EvaluationMetrics with a mutex, matching
// queue.Worker's health-tracking idiom.
type metricsTracker struct {
	mu sync.RWMutex
	m  EvaluationMetrics
}

func (t *metricsTracker) snapshot() EvaluationMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.m
}

func (t *metricsTracker) recordPass(rulesEvaluated, alertsTriggered, errCount int64, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m.TotalEvaluations++
	t.m.RulesEvaluated += rulesEvaluated
	t.m.AlertsTriggered += alertsTriggered
	t.m.EvaluationErrors += errCount
	t.m.LastDuration = duration
	t.m.LastRunAt = time.Now()
}

// evaluator is the tagged-variant interface every rule type dispatches
// to, matching spec.md §4.1's four kinds.
type evaluator interface {
	evaluate(ctx context.Context, rule *models.AlertRule, metrics store.MetricProvider) (fire bool, data map[string]any, err error)
}
