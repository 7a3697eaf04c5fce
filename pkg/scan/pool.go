package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/regulens/alertfabric/internal/store"
)

// Pool manages a pool of scan workers plus a background orphan
// recovery task, shaped after queue.WorkerPool.
type Pool struct {
	store   store.ScanStore
	source  TransactionSource
	cfg     Config
	workers []*worker

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	orphanMu         sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// NewPool constructs a Pool against its store and transaction source.
func NewPool(scanStore store.ScanStore, source TransactionSource, cfg Config) *Pool {
	return &Pool{
		store:   scanStore,
		source:  source,
		cfg:     cfg,
		workers: make([]*worker, 0, cfg.WorkerCount),
		stopCh:  make(chan struct{}),
	}
}

// Start spawns worker goroutines and the orphan detection task. Safe
// to call once.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("scan pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	for i := 0; i < p.cfg.WorkerCount; i++ {
		w := newWorker(fmt.Sprintf("scan-worker-%d", i), p.store, p.source, p.cfg)
		p.workers = append(p.workers, w)
		w.start(ctx)
	}

	p.wg.Add(1)
	go p.runOrphanDetection(ctx)

	slog.Info("scan pool started", "workers", p.cfg.WorkerCount)
}

// Stop signals all workers and the orphan task to stop, joining each.
// An in-flight job runs to completion before its worker exits.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Health returns the current health snapshot of the pool.
func (p *Pool) Health() PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		stats[i] = w.health()
		if stats[i].Status == "working" {
			active++
		}
	}

	p.orphanMu.Lock()
	lastScan := p.lastOrphanScan
	recovered := p.orphansRecovered
	p.orphanMu.Unlock()

	return PoolHealth{
		TotalWorkers: len(p.workers), ActiveWorkers: active, WorkerStats: stats,
		LastOrphanScan: lastScan, OrphansRecovered: recovered,
	}
}
