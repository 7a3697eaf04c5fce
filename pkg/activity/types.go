// Package activity implements the Agent Activity Feed: a bounded
// per-agent ring of lifecycle/decision events, incremental stats,
// subscription fan-out, querying, export, and background eviction.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// SubscriptionCallback is invoked synchronously on ingest for every
// subscription whose filter matches the new event.
type SubscriptionCallback func(ctx context.Context, event models.AgentActivityEvent)

// Config controls the feed's per-agent ring size and eviction cadence.
type Config struct {
	RingSize         int           `yaml:"ring_size"`
	RetentionWindow  time.Duration `yaml:"retention_window"`
	EvictionInterval time.Duration `yaml:"eviction_interval"`
}

// DefaultConfig matches spec.md §4.4's defaults: hourly eviction.
func DefaultConfig() Config {
	return Config{
		RingSize:         1000,
		RetentionWindow:  7 * 24 * time.Hour,
		EvictionInterval: time.Hour,
	}
}

type feedSubscription struct {
	clientID string
	filter   models.ActivityFilter
	callback SubscriptionCallback
}

type statsTracker struct {
	mu    sync.RWMutex
	byAgent map[string]*models.AgentActivityStats
}

func newStatsTracker() *statsTracker {
	return &statsTracker{byAgent: make(map[string]*models.AgentActivityStats)}
}

func (t *statsTracker) record(e models.AgentActivityEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byAgent[e.AgentID]
	if !ok {
		s = &models.AgentActivityStats{
			AgentID:         e.AgentID,
			TotalByType:     make(map[string]int),
			TotalBySeverity: make(map[string]int),
		}
		t.byAgent[e.AgentID] = s
	}
	s.TotalByType[e.ActivityType]++
	s.TotalBySeverity[string(e.Severity)]++
	s.EventCount++
	s.LastSeen = e.Timestamp
}

func (t *statsTracker) get(agentID string) (*models.AgentActivityStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byAgent[agentID]
	if !ok {
		return nil, false
	}
	cp := *s
	cp.TotalByType = copyIntMap(s.TotalByType)
	cp.TotalBySeverity = copyIntMap(s.TotalBySeverity)
	return &cp, true
}

func (t *statsTracker) feedStats() models.FeedStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := 0
	for _, s := range t.byAgent {
		total += s.EventCount
	}
	return models.FeedStats{TotalAgents: len(t.byAgent), TotalEvents: total}
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
