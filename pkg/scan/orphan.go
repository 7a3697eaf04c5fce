package scan

import (
	"context"
	"log/slog"
	"time"
)

// runOrphanDetection periodically reclaims jobs stuck in processing
// past the configured stale threshold, matching queue's
// runOrphanDetection idiom — all pods run this independently and the
// reclaim is idempotent.
func (p *Pool) runOrphanDetection(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.detectAndRecoverOrphans(ctx)
		}
	}
}

func (p *Pool) detectAndRecoverOrphans(ctx context.Context) {
	recovered, err := p.store.ReclaimOrphans(ctx, p.cfg.OrphanThreshold)
	if err != nil {
		slog.Error("scan orphan detection failed", "error", err)
		return
	}

	p.orphanMu.Lock()
	p.lastOrphanScan = time.Now()
	p.orphansRecovered += recovered
	p.orphanMu.Unlock()

	if recovered > 0 {
		slog.Warn("reclaimed orphaned scan jobs", "count", recovered)
	}
}
