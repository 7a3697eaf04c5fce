// Package regulatory implements the Regulatory Event Subscriber: a
// polling loop against an upstream change monitor, deduplication,
// filter-matched fan-out to in-process subscriber callbacks.
package regulatory

import (
	"context"
	"sync"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// Callback is invoked once per unseen event for every subscription
// whose filter matches it. Callbacks are re-registered by each agent
// on its own process startup — they are never persisted.
type Callback func(ctx context.Context, event models.RegulatoryEvent)

// Config controls the subscriber's poll cadence and backoff.
type Config struct {
	MonitorURL      string        `yaml:"monitor_url"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	MaxDedupEntries int           `yaml:"max_dedup_entries"`
	// RateLimitPerSecond caps outbound polls to the upstream monitor,
	// independent of PollInterval — it guards against a tight backoff
	// retry loop hammering the monitor when ConsecutiveFailures is low.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
}

// DefaultConfig matches spec.md §4.3's defaults: 30s poll, 30s
// request timeout, 10s connect timeout.
func DefaultConfig() Config {
	return Config{
		PollInterval:       30 * time.Second,
		HTTPTimeout:        30 * time.Second,
		ConnectTimeout:     10 * time.Second,
		MaxDedupEntries:    10000,
		RateLimitPerSecond: 2,
	}
}

// Stats mirrors spec.md §4.3's exposed counters.
type Stats struct {
	TotalSubscriptions int
	EventsProcessed    int64
	EventsNotified     int64
	ConsecutiveFailures int
	LastPollAt         time.Time
}

type statsTracker struct {
	mu sync.RWMutex
	s  Stats
}

func (t *statsTracker) snapshot(subscriptionCount int) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.s
	out.TotalSubscriptions = subscriptionCount
	return out
}

func (t *statsTracker) recordPoll(processed, notified int64, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.EventsProcessed += processed
	t.s.EventsNotified += notified
	t.s.LastPollAt = time.Now()
	if failed {
		t.s.ConsecutiveFailures++
	} else {
		t.s.ConsecutiveFailures = 0
	}
}

type subscription struct {
	filter   models.EventFilter
	callback Callback
}
