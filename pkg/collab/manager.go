package collab

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// Manager owns the live registry of collaboration sessions, users, and
// pending assistance requests. The in-memory maps are authoritative;
// persist is an optional write-behind used only when the caller wires
// one in (cmd/alertd always does), matching CollabStore's doc comment.
type Manager struct {
	cfg     Config
	persist store.CollabStore

	mu       sync.RWMutex
	sessions map[string]*models.CollaborationSession
	users    map[string]*models.HumanUser

	reqMu    sync.Mutex
	requests map[string]*models.AssistanceRequest

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewManager constructs a Manager. persist may be nil.
func NewManager(persist store.CollabStore, cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		persist:  persist,
		sessions: make(map[string]*models.CollaborationSession),
		users:    make(map[string]*models.HumanUser),
		requests: make(map[string]*models.AssistanceRequest),
		stopCh:   make(chan struct{}),
	}
}

// RegisterUser adds or replaces a HumanUser in the registry consulted
// by CreateSession and permission checks.
func (m *Manager) RegisterUser(u *models.HumanUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
}

func (m *Manager) user(userID string) (*models.HumanUser, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	return u, ok
}

// CreateSession starts a new session for req.UserID with req.AgentID,
// failing if the user is unknown, unauthorized for the agent, or
// already at MaxSessionsPerUser active sessions.
func (m *Manager) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.CollaborationSession, error) {
	user, ok := m.user(req.UserID)
	if !ok {
		return nil, fmt.Errorf("%w: user %q is not registered", errs.ErrNotFound, req.UserID)
	}
	if !user.AuthorizedFor(req.AgentID) {
		return nil, fmt.Errorf("%w: user %q is not authorized for agent %q", errs.ErrUnauthorized, req.UserID, req.AgentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, s := range m.sessions {
		if s.UserID == req.UserID && !s.State.IsTerminal() {
			active++
		}
	}
	if active >= m.cfg.MaxSessionsPerUser {
		return nil, fmt.Errorf("%w: user %q already has %d active sessions", errs.ErrResourceExhausted, req.UserID, active)
	}

	now := time.Now()
	session := &models.CollaborationSession{
		SessionID:    uuid.NewString(),
		UserID:       req.UserID,
		AgentID:      req.AgentID,
		Title:        req.Title,
		State:        models.CollabActive,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.sessions[session.SessionID] = session
	m.saveLocked(ctx, session)
	return session, nil
}

// GetSession returns a live session by ID.
func (m *Manager) GetSession(sessionID string) (*models.CollaborationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %q", errs.ErrNotFound, sessionID)
	}
	return s, nil
}

// SendMessage appends a message to sessionID, failing if the session
// is unknown, already terminal, or at MaxMessagesPerSession.
func (m *Manager) SendMessage(ctx context.Context, sessionID string, msg models.CollabMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %q", errs.ErrNotFound, sessionID)
	}
	if s.State.IsTerminal() {
		return fmt.Errorf("%w: session %q is %s", errs.ErrConflict, sessionID, s.State)
	}
	if len(s.Messages) >= m.cfg.MaxMessagesPerSession {
		return fmt.Errorf("%w: session %q already has %d messages", errs.ErrResourceExhausted, sessionID, len(s.Messages))
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, msg)
	s.LastActivity = msg.Timestamp
	m.saveLocked(ctx, s)
	return nil
}

// RecordFeedback appends operator feedback to a session.
func (m *Manager) RecordFeedback(ctx context.Context, sessionID string, fb models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %q", errs.ErrNotFound, sessionID)
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}
	s.Feedback = append(s.Feedback, fb)
	s.LastActivity = fb.Timestamp
	m.saveLocked(ctx, s)
	return nil
}

// RecordIntervention appends a supervisor override/intervention to a session.
func (m *Manager) RecordIntervention(ctx context.Context, sessionID string, iv models.Intervention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %q", errs.ErrNotFound, sessionID)
	}
	if iv.Timestamp.IsZero() {
		iv.Timestamp = time.Now()
	}
	s.Interventions = append(s.Interventions, iv)
	s.LastActivity = iv.Timestamp
	m.saveLocked(ctx, s)
	return nil
}

// EndSession transitions a session to a terminal state and removes it
// from the active map; it remains reachable only through the persisted
// store, if one is configured.
func (m *Manager) EndSession(ctx context.Context, sessionID string, finalState models.CollabSessionState) error {
	if !finalState.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal state", errs.ErrInvalidInput, finalState)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %q", errs.ErrNotFound, sessionID)
	}
	s.State = finalState
	s.LastActivity = time.Now()
	m.saveLocked(ctx, s)
	delete(m.sessions, sessionID)
	return nil
}

// ListActiveSessions returns a snapshot of every non-terminal session.
func (m *Manager) ListActiveSessions() []*models.CollaborationSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.CollaborationSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !s.State.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}

// saveLocked write-behinds to persist, if configured. Caller must hold m.mu.
func (m *Manager) saveLocked(ctx context.Context, s *models.CollaborationSession) {
	if m.persist == nil {
		return
	}
	cp := *s
	_ = m.persist.SaveSession(ctx, &cp)
}

// Restore reloads persisted sessions into the live registry, used on
// startup when persistence is enabled.
func (m *Manager) Restore(ctx context.Context) error {
	if m.persist == nil {
		return nil
	}
	sessions, err := m.persist.LoadSessions(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sessions {
		if s.State.IsTerminal() {
			continue
		}
		m.sessions[s.SessionID] = s
	}
	return nil
}
