package notify

import (
	"sync"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// metricsTracker guards Metrics with a mutex, matching the rule
// engine's metricsTracker idiom.
type metricsTracker struct {
	mu          sync.RWMutex
	m           Metrics
	deliveries  int64
	totalDelay  time.Duration
}

func newMetricsTracker() *metricsTracker {
	return &metricsTracker{
		m: Metrics{PerChannelType: make(map[models.ChannelType]int64)},
	}
}

func (t *metricsTracker) recordSent(ch models.ChannelType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m.TotalSent++
	t.m.PerChannelType[ch]++
}

func (t *metricsTracker) recordOutcome(success bool, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.m.TotalSucceeded++
	} else {
		t.m.TotalFailed++
	}
	t.deliveries++
	t.totalDelay += elapsed
	t.m.RollingAvgDelivery = t.totalDelay / time.Duration(t.deliveries)
}

func (t *metricsTracker) recordRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m.RetriesAttempted++
}

func (t *metricsTracker) snapshot() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.m
	out.PerChannelType = make(map[models.ChannelType]int64, len(t.m.PerChannelType))
	for k, v := range t.m.PerChannelType {
		out.PerChannelType[k] = v
	}
	return out
}
