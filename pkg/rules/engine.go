package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// Engine is the Rule Evaluation Engine: one background goroutine that
// periodically evaluates every enabled rule, shaped after
// queue.WorkerPool's Start/Stop/trigger idiom.
type Engine struct {
	rules    store.RuleStore
	metrics  store.MetricProvider
	raiser   IncidentRaiser
	cfg      Config

	trigger  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	metricsTracker metricsTracker
}

// NewEngine constructs an Engine. raiser may be nil in tests that only
// assert evaluator dispatch, but production wiring always supplies
// pkg/notify's Service.
func NewEngine(rules store.RuleStore, metrics store.MetricProvider, raiser IncidentRaiser, cfg Config) *Engine {
	return &Engine{
		rules:   rules,
		metrics: metrics,
		raiser:  raiser,
		cfg:     cfg,
		trigger: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the evaluation loop. Safe to call once; subsequent
// calls are no-ops, matching queue.WorkerPool.Start.
func (e *Engine) Start(ctx context.Context) {
	if e.started {
		slog.Warn("rule engine already started, ignoring duplicate Start call")
		return
	}
	e.started = true
	e.wg.Add(1)
	go e.runLoop(ctx)
}

// Stop signals the loop to stop and waits for it to finish.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

// TriggerEvaluation forces one immediate pass. Idempotent while a
// pass is already in flight — the buffered channel absorbs repeated
// triggers without blocking the caller.
func (e *Engine) TriggerEvaluation() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Metrics returns a snapshot of the engine's counters.
func (e *Engine) Metrics() EvaluationMetrics {
	return e.metricsTracker.snapshot()
}

func (e *Engine) runLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.EvaluationInterval)
	defer ticker.Stop()

	slog.Info("rule evaluation engine started", "interval", e.cfg.EvaluationInterval)

	for {
		select {
		case <-e.stopCh:
			slog.Info("rule evaluation engine stopping")
			return
		case <-ctx.Done():
			slog.Info("rule evaluation engine context cancelled")
			return
		case <-ticker.C:
			e.runPass(ctx)
		case <-e.trigger:
			e.runPass(ctx)
		}
	}
}

func (e *Engine) runPass(ctx context.Context) {
	start := time.Now()

	rulesList, err := e.rules.ListRules(ctx, models.RuleFilters{EnabledOnly: true})
	if err != nil {
		slog.Error("failed to load enabled rules", "error", err)
		e.metricsTracker.recordPass(0, 0, 1, time.Since(start))
		return
	}

	var evaluated, triggered, errCount int64
	for _, rule := range rulesList {
		evaluated++
		if rule.InCooldown(time.Now()) {
			continue
		}
		fired, err := e.evaluateRule(ctx, rule)
		if err != nil {
			slog.Error("rule evaluation failed", "rule_id", rule.RuleID, "error", err)
			errCount++
			continue
		}
		if fired {
			triggered++
		}
	}

	e.metricsTracker.recordPass(evaluated, triggered, errCount, time.Since(start))
}

func (e *Engine) evaluateRule(ctx context.Context, rule *models.AlertRule) (bool, error) {
	ev, err := evaluatorFor(rule.Type)
	if err != nil {
		return false, err
	}
	fire, data, err := ev.evaluate(ctx, rule, e.metrics)
	if err != nil {
		return false, err
	}
	if !fire {
		return false, nil
	}

	if err := e.rules.MarkTriggered(ctx, rule.RuleID, time.Now()); err != nil {
		return false, fmt.Errorf("marking rule triggered: %w", err)
	}

	if e.raiser != nil {
		if err := e.raiser.RaiseIncident(ctx, rule, data); err != nil {
			return true, fmt.Errorf("raising incident: %w", err)
		}
	}
	return true, nil
}
