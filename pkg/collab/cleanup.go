package collab

import (
	"context"
	"log/slog"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// Start launches the background cleanup loop that times out inactive
// sessions and evicts expired assistance requests, matching
// pkg/cleanup's Start/run/ticker idiom.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx)

	slog.Info("collaboration cleanup started",
		"session_timeout", m.cfg.SessionTimeout,
		"interval", m.cfg.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	m.runAll(ctx)

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.runAll(ctx)
		}
	}
}

func (m *Manager) runAll(ctx context.Context) {
	m.timeoutInactiveSessions(ctx)

	m.reqMu.Lock()
	m.pruneExpiredLocked(time.Now())
	m.reqMu.Unlock()
}

func (m *Manager) timeoutInactiveSessions(ctx context.Context) {
	now := time.Now()

	m.mu.Lock()
	var timedOut []*models.CollaborationSession
	for _, s := range m.sessions {
		if s.State.IsTerminal() {
			continue
		}
		if now.Sub(s.LastActivity) >= m.cfg.SessionTimeout {
			s.State = models.CollabTimeout
			s.LastActivity = now
			timedOut = append(timedOut, s)
		}
	}
	for _, s := range timedOut {
		m.saveLocked(ctx, s)
		delete(m.sessions, s.SessionID)
	}
	m.mu.Unlock()

	if len(timedOut) > 0 {
		slog.Warn("collaboration sessions timed out", "count", len(timedOut))
	}
}
