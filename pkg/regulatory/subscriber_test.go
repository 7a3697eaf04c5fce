package regulatory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/internal/store/memstore"
	"github.com/regulens/alertfabric/pkg/models"
)

func TestSubscriberPollDedupsAndDispatches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		changes := []models.MonitorChange{
			{ChangeID: "c1", SourceName: "sec", RegulationTitle: "t1", ChangeType: "rule_change", Severity: "high"},
		}
		_ = json.NewEncoder(w).Encode(changes)
	}))
	defer srv.Close()

	s := memstore.New()
	cfg := DefaultConfig()
	cfg.MonitorURL = srv.URL
	sub := NewSubscriber(s, cfg)

	var mu sync.Mutex
	var received []models.RegulatoryEvent
	require.NoError(t, sub.Subscribe(context.Background(), "agent1", models.EventFilter{}, func(ctx context.Context, e models.RegulatoryEvent) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}))

	sub.poll(context.Background())
	sub.poll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 1, "second poll must not redeliver the already-seen change")
	assert.Equal(t, "c1", received[0].ChangeID)
}

func TestSubscriberCallbackPanicDoesNotAbortPass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		changes := []models.MonitorChange{
			{ChangeID: "c1", SourceName: "sec", ChangeType: "rule_change", Severity: "high"},
			{ChangeID: "c2", SourceName: "sec", ChangeType: "rule_change", Severity: "high"},
		}
		_ = json.NewEncoder(w).Encode(changes)
	}))
	defer srv.Close()

	s := memstore.New()
	cfg := DefaultConfig()
	cfg.MonitorURL = srv.URL
	sub := NewSubscriber(s, cfg)

	var count int
	require.NoError(t, sub.Subscribe(context.Background(), "agent1", models.EventFilter{}, func(ctx context.Context, e models.RegulatoryEvent) {
		count++
		if e.ChangeID == "c1" {
			panic("boom")
		}
	}))

	sub.poll(context.Background())
	assert.Equal(t, 2, count, "both events must be dispatched despite c1's callback panicking")
}

func TestSubscriberFilterExcludesNonMatching(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		changes := []models.MonitorChange{{ChangeID: "c1", SourceName: "finra", ChangeType: "guidance", Severity: "low"}}
		_ = json.NewEncoder(w).Encode(changes)
	}))
	defer srv.Close()

	s := memstore.New()
	cfg := DefaultConfig()
	cfg.MonitorURL = srv.URL
	sub := NewSubscriber(s, cfg)

	var called bool
	require.NoError(t, sub.Subscribe(context.Background(), "agent1", models.EventFilter{Sources: []string{"sec"}}, func(ctx context.Context, e models.RegulatoryEvent) {
		called = true
	}))

	sub.poll(context.Background())
	assert.False(t, called)
}

func TestSubscriberStartReloadsPersistedFilters(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.UpsertSubscription(context.Background(), &models.Subscription{AgentID: "agent1", Filter: models.EventFilter{Sources: []string{"sec"}}}))

	cfg := DefaultConfig()
	cfg.MonitorURL = "http://127.0.0.1:0"
	sub := NewSubscriber(s, cfg)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Stop()

	time.Sleep(10 * time.Millisecond)
	stats := sub.Stats()
	assert.Equal(t, 1, stats.TotalSubscriptions)
}
