// Package internal holds cross-subsystem scenario tests that exercise
// more than one package's public API against a shared in-memory store —
// the unit tests under each pkg/* already cover that package in
// isolation.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/internal/store/memstore"
	"github.com/regulens/alertfabric/pkg/collab"
	"github.com/regulens/alertfabric/pkg/models"
	"github.com/regulens/alertfabric/pkg/notify"
	"github.com/regulens/alertfabric/pkg/regulatory"
	"github.com/regulens/alertfabric/pkg/rules"
	"github.com/regulens/alertfabric/pkg/scan"
)

// TestScenarioThresholdFiresThenCooloffHolds walks a threshold rule
// through its cooldown window: fires at T=0, stays quiet at T=1min,
// fires again once the 5-minute cooldown has fully elapsed.
func TestScenarioThresholdFiresThenCooloffHolds(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.CreateRule(ctx, &models.AlertRule{
		RuleID:          "r1",
		Name:            "transaction volume",
		Type:            models.RuleTypeThreshold,
		Enabled:         true,
		CooldownMinutes: 5,
		Condition:       models.Condition{Metric: "transaction_volume", Operator: models.OpGT, Threshold: 10},
	}))

	raiser := &countingRaiser{}
	engine := rules.NewEngine(s, s, raiser, rules.Config{EvaluationInterval: time.Hour})
	engine.Start(ctx)
	defer engine.Stop()

	// T=0, metric=12: fires.
	require.NoError(t, s.RecordMetric(ctx, "transaction_volume", 12, nil))
	engine.TriggerEvaluation()
	require.Eventually(t, func() bool { return raiser.count() == 1 }, time.Second, 5*time.Millisecond)

	rule, err := s.GetRule(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, rule.LastTriggeredAt)
	firedAt := *rule.LastTriggeredAt

	// T=1min, metric=20: cooldown still holds.
	rule.LastTriggeredAt = timePtr(firedAt.Add(-1 * time.Minute))
	require.NoError(t, s.UpdateRule(ctx, rule))
	require.NoError(t, s.RecordMetric(ctx, "transaction_volume", 20, nil))
	engine.TriggerEvaluation()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, raiser.count(), "cooldown must suppress the second firing")

	// T=5min, metric=20: cooldown has fully elapsed, fires again.
	rule.LastTriggeredAt = timePtr(firedAt.Add(-5 * time.Minute))
	require.NoError(t, s.UpdateRule(ctx, rule))
	engine.TriggerEvaluation()
	require.Eventually(t, func() bool { return raiser.count() == 2 }, time.Second, 5*time.Millisecond)
}

type countingRaiser struct {
	mu sync.Mutex
	n  int
}

func (r *countingRaiser) RaiseIncident(ctx context.Context, rule *models.AlertRule, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	return nil
}

func (r *countingRaiser) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func timePtr(t time.Time) *time.Time { return &t }

// TestScenarioWebhookSucceedsOnSecondRetry drives a webhook channel
// that returns 500 on its first delivery attempt and 200 thereafter:
// the first send lands in "retrying", the retry scanner reclaims it,
// and the second attempt delivers.
func TestScenarioWebhookSucceedsOnSecondRetry(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		n := hits
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.CreateChannel(ctx, &models.NotificationChannel{
		ChannelID: "c1", Type: models.ChannelWebhook, Enabled: true,
		Config: map[string]any{"url": srv.URL},
	}))
	require.NoError(t, s.CreateIncident(ctx, &models.AlertIncident{
		IncidentID: "i1", RuleID: "r1", Severity: models.SeverityHigh, Title: "large transfer", Status: models.IncidentActive,
	}))

	cfg := notify.DefaultConfig()
	cfg.RetryInterval = 10 * time.Millisecond
	cfg.BaseRetryDelay = time.Millisecond
	svc := notify.NewService(s, s, s, cfg)
	svc.Start(ctx)
	defer svc.Stop()

	id, err := svc.SendNotification(ctx, models.SendNotificationRequest{
		IncidentID: "i1",
		ChannelID:  "c1",
		Alert:      models.AlertPayload{Title: "large transfer", Severity: models.SeverityHigh},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	attempts, err := s.ListByIncident(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.DeliveryRetrying, attempts[0].Status, "first attempt against a failing endpoint must be queued for retry")

	require.Eventually(t, func() bool {
		attempts, err := s.ListByIncident(ctx, "i1")
		return err == nil && len(attempts) == 1 && attempts[0].Status == models.DeliveryDelivered
	}, 2*time.Second, 10*time.Millisecond, "retry scanner must reclaim and redeliver the attempt")

	metrics := svc.Metrics()
	assert.GreaterOrEqual(t, metrics.RetriesAttempted, int64(1))
	assert.GreaterOrEqual(t, metrics.TotalSucceeded, int64(1))
}

// TestScenarioSubscriberFilterMatchAndDedup covers both a subscription
// filter excluding a non-matching change and the subscriber's dedup
// set suppressing a change already delivered on an earlier poll.
func TestScenarioSubscriberFilterMatchAndDedup(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		changes := []models.MonitorChange{
			{ChangeID: "a", SourceName: "SEC Release", ChangeType: "rule_change", Severity: "high"},
			{ChangeID: "b", SourceName: "FCA", ChangeType: "rule_change", Severity: "high"},
		}
		_ = json.NewEncoder(w).Encode(changes)
	}))
	defer srv.Close()

	s := memstore.New()
	cfg := regulatory.DefaultConfig()
	cfg.MonitorURL = srv.URL
	cfg.PollInterval = 10 * time.Millisecond
	sub := regulatory.NewSubscriber(s, cfg)

	var received []models.RegulatoryEvent
	require.NoError(t, sub.Subscribe(context.Background(), "agent1",
		models.EventFilter{Sources: []string{"SEC"}, Severities: []models.Severity{models.SeverityHigh}},
		func(ctx context.Context, e models.RegulatoryEvent) {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
		}))

	require.NoError(t, sub.Start(context.Background()))
	defer sub.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, 2*time.Second, 10*time.Millisecond, "monitor must be polled more than once")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1, "the FCA change is filtered out and the SEC change is delivered exactly once across every poll")
	assert.Equal(t, "a", received[0].ChangeID)

	stats := sub.Stats()
	assert.EqualValues(t, 2, stats.EventsProcessed, "both changes are deduped-in exactly once, regardless of filter match")
	assert.EqualValues(t, 1, stats.EventsNotified, "only the SEC change matches the subscription filter")
}

// TestScenarioAtomicScanClaimUnderConcurrency starts two workers
// against a single queued job; exactly one of them must claim it, and
// the job must reach completed with every transaction processed.
func TestScenarioAtomicScanClaimUnderConcurrency(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	s.SeedFraudRule(&models.FraudRule{
		RuleID: "fr1", Name: "large", Type: models.FraudRuleThreshold, Definition: "amount > 1000", Enabled: true,
	})
	require.NoError(t, s.CreateScanJob(ctx, &models.ScanJob{JobID: "j1", Status: models.ScanQueued, Priority: 10}))

	source := &scenarioSource{txns: []models.Transaction{
		{TransactionID: "t1", Amount: 500},
		{TransactionID: "t2", Amount: 5000},
		{TransactionID: "t3", Amount: 10000},
	}}

	cfg := scan.DefaultConfig()
	cfg.WorkerCount = 2
	cfg.PollInterval = 5 * time.Millisecond
	pool := scan.NewPool(s, source, cfg)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		job, err := s.GetScanJob(ctx, "j1")
		return err == nil && job.Status == models.ScanCompleted
	}, 2*time.Second, 10*time.Millisecond)

	job, err := s.GetScanJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, len(source.txns), job.TransactionsProcessed)
	assert.Equal(t, job.TransactionsTotal, job.TransactionsProcessed)
}

type scenarioSource struct {
	txns []models.Transaction
}

func (f *scenarioSource) CountMatching(ctx context.Context, filters models.ScanFilters) (int, error) {
	return len(f.txns), nil
}

func (f *scenarioSource) StreamMatching(ctx context.Context, filters models.ScanFilters, visit func(models.Transaction) error) error {
	for _, txn := range f.txns {
		if err := visit(txn); err != nil {
			return err
		}
	}
	return nil
}

// TestScenarioSessionTimeout covers an idle collaboration session
// crossing its timeout threshold: the cleanup loop marks it timed out,
// removes it from the active map entirely, and further lookups or
// messages against it report "session not found."
func TestScenarioSessionTimeout(t *testing.T) {
	s := memstore.New()
	cfg := collab.DefaultConfig()
	cfg.SessionTimeout = 20 * time.Millisecond
	cfg.CleanupInterval = 5 * time.Millisecond
	mgr := collab.NewManager(s, cfg)
	mgr.RegisterUser(&models.HumanUser{UserID: "u1", Role: models.RoleOperator})

	ctx := context.Background()
	session, err := mgr.CreateSession(ctx, models.CreateSessionRequest{UserID: "u1", AgentID: "agent-1", Title: "idle session"})
	require.NoError(t, err)

	mgr.Start(ctx)
	defer mgr.Stop()

	require.Eventually(t, func() bool {
		_, err := mgr.GetSession(session.SessionID)
		return errors.Is(err, errs.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond, "timed-out session must be removed from the active map")

	assert.Empty(t, mgr.ListActiveSessions(), "a timed-out session must not appear in the active list")

	err = mgr.SendMessage(ctx, session.SessionID, models.CollabMessage{Role: models.CollabRoleUser, Content: "still there?"})
	assert.True(t, errors.Is(err, errs.ErrNotFound), "messages to a timed-out session must report session not found")
}
