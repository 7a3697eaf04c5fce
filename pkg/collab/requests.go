package collab

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

// CreateAssistanceRequest records a short-lived question raised by
// agentID, failing once MaxPendingRequests is already outstanding.
func (m *Manager) CreateAssistanceRequest(agentID, kind string, payload map[string]any, ttl time.Duration) (*models.AssistanceRequest, error) {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()

	now := time.Now()
	m.pruneExpiredLocked(now)

	if len(m.requests) >= m.cfg.MaxPendingRequests {
		return nil, fmt.Errorf("%w: %d assistance requests already pending", errs.ErrResourceExhausted, len(m.requests))
	}

	req := &models.AssistanceRequest{
		RequestID: uuid.NewString(),
		AgentID:   agentID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	m.requests[req.RequestID] = req
	return req, nil
}

// PendingRequests returns every non-expired request for agentID (or
// every agent, if agentID is empty), evicting anything expired as a
// side effect.
func (m *Manager) PendingRequests(agentID string) []*models.AssistanceRequest {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()

	now := time.Now()
	m.pruneExpiredLocked(now)

	out := make([]*models.AssistanceRequest, 0, len(m.requests))
	for _, r := range m.requests {
		if agentID != "" && r.AgentID != agentID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// RespondToRequest resolves a pending request, removing it from the
// registry. It fails if the request does not exist or has expired.
func (m *Manager) RespondToRequest(requestID string, response map[string]any, userID string) error {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()

	req, ok := m.requests[requestID]
	if !ok {
		return fmt.Errorf("%w: assistance request %q", errs.ErrNotFound, requestID)
	}
	if req.Expired(time.Now()) {
		delete(m.requests, requestID)
		return fmt.Errorf("%w: assistance request %q expired", errs.ErrConflict, requestID)
	}

	delete(m.requests, requestID)
	return nil
}

// pruneExpiredLocked removes every expired request. Caller must hold m.reqMu.
func (m *Manager) pruneExpiredLocked(now time.Time) {
	for id, r := range m.requests {
		if r.Expired(now) {
			delete(m.requests, id)
		}
	}
}
