package rules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/internal/store/memstore"
	"github.com/regulens/alertfabric/pkg/models"
)

type recordingRaiser struct {
	mu     sync.Mutex
	raised []string
}

func (r *recordingRaiser) RaiseIncident(ctx context.Context, rule *models.AlertRule, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised = append(r.raised, rule.RuleID)
	return nil
}

func (r *recordingRaiser) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.raised)
}

func TestEngineFiresThresholdRule(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.RecordMetric(ctx, "transaction_volume", 15000, nil))
	require.NoError(t, s.CreateRule(ctx, &models.AlertRule{
		RuleID:  "r1",
		Name:    "high transaction volume",
		Type:    models.RuleTypeThreshold,
		Enabled: true,
		Condition: models.Condition{
			Metric:    "transaction_volume",
			Operator:  models.OpGT,
			Threshold: 10000,
		},
	}))

	raiser := &recordingRaiser{}
	engine := NewEngine(s, s, raiser, Config{EvaluationInterval: time.Hour})
	engine.runPass(ctx)

	assert.Equal(t, 1, raiser.count())
	metrics := engine.Metrics()
	assert.EqualValues(t, 1, metrics.RulesEvaluated)
	assert.EqualValues(t, 1, metrics.AlertsTriggered)

	rule, err := s.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, rule.LastTriggeredAt)
}

func TestEngineRespectsCooldown(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.RecordMetric(ctx, "transaction_volume", 15000, nil))

	now := time.Now()
	require.NoError(t, s.CreateRule(ctx, &models.AlertRule{
		RuleID:          "r1",
		Type:            models.RuleTypeThreshold,
		Enabled:         true,
		CooldownMinutes: 60,
		LastTriggeredAt: &now,
		Condition:       models.Condition{Metric: "transaction_volume", Operator: models.OpGT, Threshold: 10000},
	}))

	raiser := &recordingRaiser{}
	engine := NewEngine(s, s, raiser, Config{EvaluationInterval: time.Hour})
	engine.runPass(ctx)

	assert.Equal(t, 0, raiser.count(), "rule in cooldown must not fire")
}

func TestEngineTriggerEvaluationIdempotent(t *testing.T) {
	s := memstore.New()
	engine := NewEngine(s, s, nil, Config{EvaluationInterval: time.Hour})

	engine.TriggerEvaluation()
	engine.TriggerEvaluation()
	engine.TriggerEvaluation()

	assert.Len(t, engine.trigger, 1, "buffered trigger channel absorbs repeats")
}

func TestEnginePatternEvaluatorInvalidRegexDoesNotFire(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.RecordMetric(ctx, "alerts_feed", 0, map[string]any{"event": "ordinary"}))
	require.NoError(t, s.CreateRule(ctx, &models.AlertRule{
		RuleID:    "r1",
		Type:      models.RuleTypePattern,
		Enabled:   true,
		Condition: models.Condition{Metric: "alerts_feed", Pattern: "(unclosed"},
	}))

	raiser := &recordingRaiser{}
	engine := NewEngine(s, s, raiser, Config{EvaluationInterval: time.Hour})
	engine.runPass(ctx)

	assert.Equal(t, 0, raiser.count())
}
