package regulatory

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// Subscriber polls the upstream regulatory monitor on its own ticker
// loop, deduplicates by change id, and fans matching events out to
// in-process subscriber callbacks.
type Subscriber struct {
	store  store.RegulatoryStore
	client *monitorClient
	cfg    Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	subMu         sync.RWMutex
	subscriptions map[string]*subscription

	dedupMu  sync.Mutex
	dedup    map[string]struct{}
	dedupQ   []string
	lastID   string

	stats statsTracker
}

// NewSubscriber constructs a Subscriber. Persisted subscription
// filters are reloaded in Start; callbacks must be re-registered via
// Subscribe by each agent on its own startup.
func NewSubscriber(regStore store.RegulatoryStore, cfg Config) *Subscriber {
	return &Subscriber{
		store:         regStore,
		client:        newMonitorClient(cfg),
		cfg:           cfg,
		stopCh:        make(chan struct{}),
		subscriptions: make(map[string]*subscription),
		dedup:         make(map[string]struct{}),
	}
}

// Subscribe registers (or replaces) an agent's filter and callback,
// persisting the filter so it survives this process but re-binding
// the callback to this in-memory registration.
func (s *Subscriber) Subscribe(ctx context.Context, agentID string, filter models.EventFilter, cb Callback) error {
	if err := s.store.UpsertSubscription(ctx, &models.Subscription{AgentID: agentID, Filter: filter}); err != nil {
		return err
	}
	s.subMu.Lock()
	s.subscriptions[agentID] = &subscription{filter: filter, callback: cb}
	s.subMu.Unlock()
	return nil
}

// Unsubscribe removes an agent's subscription and persisted filter.
func (s *Subscriber) Unsubscribe(ctx context.Context, agentID string) error {
	s.subMu.Lock()
	delete(s.subscriptions, agentID)
	s.subMu.Unlock()
	return s.store.DeleteSubscription(ctx, agentID)
}

// Stats returns a snapshot of the subscriber's counters.
func (s *Subscriber) Stats() Stats {
	s.subMu.RLock()
	n := len(s.subscriptions)
	s.subMu.RUnlock()
	return s.stats.snapshot(n)
}

// Start loads persisted subscription filters and begins the polling
// loop. Safe to call once.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.started {
		slog.Warn("regulatory subscriber already started, ignoring duplicate Start call")
		return nil
	}
	s.started = true

	persisted, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	s.subMu.Lock()
	for _, p := range persisted {
		if _, exists := s.subscriptions[p.AgentID]; !exists {
			s.subscriptions[p.AgentID] = &subscription{filter: p.Filter}
		}
	}
	s.subMu.Unlock()

	s.wg.Add(1)
	go s.runLoop(ctx)
	return nil
}

// Stop signals the loop to stop and waits for it to finish.
func (s *Subscriber) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Subscriber) runLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		s.poll(ctx)

		failures := s.stats.snapshot(0).ConsecutiveFailures
		interval := s.cfg.PollInterval
		if failures >= 3 {
			interval = time.Duration(math.Min(300, math.Pow(2, float64(failures-3))*10)) * time.Second
		}

		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (s *Subscriber) poll(ctx context.Context) {
	changes, err := s.client.fetchChanges(ctx, s.lastID)
	if err != nil {
		slog.Error("regulatory monitor poll failed", "error", err)
		s.stats.recordPoll(0, 0, true)
		return
	}

	var processed, notified int64
	for _, c := range changes {
		event := toEvent(c)
		if !s.markSeen(event.ChangeID) {
			continue
		}
		processed++
		s.lastID = event.ChangeID
		notified += s.dispatch(ctx, event)
	}
	s.stats.recordPoll(processed, notified, false)
}

// markSeen returns true if changeID is new, recording it in the
// bounded dedup set (oldest-first eviction once MaxDedupEntries is reached).
func (s *Subscriber) markSeen(changeID string) bool {
	s.dedupMu.Lock()
	defer s.dedupMu.Unlock()

	if _, seen := s.dedup[changeID]; seen {
		return false
	}
	s.dedup[changeID] = struct{}{}
	s.dedupQ = append(s.dedupQ, changeID)
	if len(s.dedupQ) > s.cfg.MaxDedupEntries {
		oldest := s.dedupQ[0]
		s.dedupQ = s.dedupQ[1:]
		delete(s.dedup, oldest)
	}
	return true
}

// dispatch invokes every matching subscription's callback
// synchronously in the polling goroutine; a panicking or erroring
// callback is logged but never aborts the pass.
func (s *Subscriber) dispatch(ctx context.Context, event models.RegulatoryEvent) int64 {
	s.subMu.RLock()
	subs := make([]*subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subs = append(subs, sub)
	}
	s.subMu.RUnlock()

	var notified int64
	for _, sub := range subs {
		if sub.callback == nil || !matches(sub.filter, event) {
			continue
		}
		notified += s.invoke(ctx, sub.callback, event)
	}
	return notified
}

func (s *Subscriber) invoke(ctx context.Context, cb Callback, event models.RegulatoryEvent) (notified int64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("subscription callback panicked", "change_id", event.ChangeID, "panic", r)
			notified = 0
		}
	}()
	cb(ctx, event)
	return 1
}
