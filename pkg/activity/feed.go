package activity

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regulens/alertfabric/internal/ring"
	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// Feed is the Agent Activity Feed: an in-memory, bounded-per-agent
// ring of events backed by an ActivityStore for durable export/query,
// with subscription fan-out and background eviction.
type Feed struct {
	persist store.ActivityStore
	cfg     Config

	mu    sync.RWMutex
	rings map[string]*ring.Buffer[models.AgentActivityEvent]
	stats *statsTracker

	subMu         sync.RWMutex
	subscriptions map[string]*feedSubscription

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewFeed constructs a Feed. persist may be nil to disable durable
// export/query and keep purely in-memory ring behavior.
func NewFeed(persist store.ActivityStore, cfg Config) *Feed {
	return &Feed{
		persist:       persist,
		cfg:           cfg,
		rings:         make(map[string]*ring.Buffer[models.AgentActivityEvent]),
		stats:         newStatsTracker(),
		subscriptions: make(map[string]*feedSubscription),
		stopCh:        make(chan struct{}),
	}
}

// Start begins the background eviction task. Safe to call once.
func (f *Feed) Start(ctx context.Context) {
	if f.started {
		slog.Warn("activity feed already started, ignoring duplicate Start call")
		return
	}
	f.started = true
	f.wg.Add(1)
	go f.runEviction(ctx)
}

// Shutdown joins the eviction task. If persistence is enabled, any
// tail events are already durable (RecordActivity writes through on
// every ingest), so no final flush is required.
func (f *Feed) Shutdown() {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.wg.Wait()
}

// RecordActivity appends event, updates stats, persists it, and
// invokes every matching subscription's callback.
func (f *Feed) RecordActivity(ctx context.Context, event models.AgentActivityEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	f.mu.Lock()
	buf, ok := f.rings[event.AgentID]
	if !ok {
		buf = ring.New[models.AgentActivityEvent](f.cfg.RingSize)
		f.rings[event.AgentID] = buf
	}
	f.mu.Unlock()
	buf.Push(event)

	f.stats.record(event)

	if f.persist != nil {
		if err := f.persist.AppendEvent(ctx, &event); err != nil {
			slog.Error("failed to persist activity event", "event_id", event.EventID, "error", err)
		}
	}

	f.notifySubscribers(ctx, event)
	return nil
}

func (f *Feed) notifySubscribers(ctx context.Context, event models.AgentActivityEvent) {
	f.subMu.RLock()
	subs := make([]*feedSubscription, 0, len(f.subscriptions))
	for _, s := range f.subscriptions {
		subs = append(subs, s)
	}
	f.subMu.RUnlock()

	for _, sub := range subs {
		if sub.callback == nil || !matches(sub.filter, event) {
			continue
		}
		f.invoke(sub, ctx, event)
	}
}

func (f *Feed) invoke(sub *feedSubscription, ctx context.Context, event models.AgentActivityEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("activity subscription callback panicked", "client_id", sub.clientID, "panic", r)
		}
	}()
	sub.callback(ctx, event)
}

// Subscribe registers a session-lived subscription, returning its id.
func (f *Feed) Subscribe(clientID string, filter models.ActivityFilter, cb SubscriptionCallback) string {
	subID := uuid.NewString()
	f.subMu.Lock()
	f.subscriptions[subID] = &feedSubscription{clientID: clientID, filter: filter, callback: cb}
	f.subMu.Unlock()
	return subID
}

// Unsubscribe removes a subscription by id.
func (f *Feed) Unsubscribe(subID string) {
	f.subMu.Lock()
	delete(f.subscriptions, subID)
	f.subMu.Unlock()
}

// QueryActivities returns a snapshot ordered by time descending, up to
// filter.MaxResults (0 = unbounded). Reads the in-memory rings — the
// durable ActivityStore serves export and any query spanning an
// evicted window.
func (f *Feed) QueryActivities(filter models.ActivityFilter) []models.AgentActivityEvent {
	f.mu.RLock()
	all := make([]models.AgentActivityEvent, 0)
	for agentID, buf := range f.rings {
		if len(filter.AgentIDs) > 0 && !contains(filter.AgentIDs, agentID) {
			continue
		}
		all = append(all, buf.Snapshot()...)
	}
	f.mu.RUnlock()

	out := make([]models.AgentActivityEvent, 0, len(all))
	for _, e := range all {
		if matches(filter, e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.MaxResults > 0 && filter.MaxResults < len(out) {
		out = out[:filter.MaxResults]
	}
	return out
}

// GetAgentStats returns the agent's incrementally-maintained stats.
func (f *Feed) GetAgentStats(agentID string) (*models.AgentActivityStats, bool) {
	return f.stats.get(agentID)
}

// GetFeedStats returns aggregates across the whole feed.
func (f *Feed) GetFeedStats() models.FeedStats {
	return f.stats.feedStats()
}

func (f *Feed) runEviction(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.EvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.evict()
		}
	}
}

// evict prunes events older than the retention window from every
// per-agent ring. Ring-size bounding already happens on every Push;
// this pass only enforces the age-based retention window.
func (f *Feed) evict() {
	if f.cfg.RetentionWindow <= 0 {
		return
	}
	cutoff := time.Now().Add(-f.cfg.RetentionWindow)

	f.mu.RLock()
	buffers := make([]*ring.Buffer[models.AgentActivityEvent], 0, len(f.rings))
	for _, buf := range f.rings {
		buffers = append(buffers, buf)
	}
	f.mu.RUnlock()

	var pruned int
	for _, buf := range buffers {
		pruned += buf.PruneFunc(func(e models.AgentActivityEvent) bool { return e.Timestamp.After(cutoff) })
	}
	if pruned > 0 {
		slog.Info("activity feed eviction pass pruned aged events", "count", pruned)
	}
}
