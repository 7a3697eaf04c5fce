package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

// SaveSession persists a CollaborationSession as a single JSON
// document — used whenever this store is the collab.Manager's
// CollabStore; the in-memory manager is authoritative for live sessions.
func (s *Store) SaveSession(ctx context.Context, session *models.CollaborationSession) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO collaboration_sessions (session_id, document, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (session_id) DO UPDATE SET document=$2, updated_at=$3`,
		session.SessionID, doc, time.Now())
	if err != nil {
		return errs.NewStoreError("save_session", err)
	}
	return nil
}

func (s *Store) LoadSessions(ctx context.Context) ([]*models.CollaborationSession, error) {
	rows, err := s.pool.Query(ctx, `SELECT document FROM collaboration_sessions`)
	if err != nil {
		return nil, errs.NewStoreError("load_sessions", err)
	}
	defer rows.Close()

	var out []*models.CollaborationSession
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errs.NewStoreError("load_sessions_scan", err)
		}
		var sess models.CollaborationSession
		if err := json.Unmarshal(doc, &sess); err != nil {
			return nil, fmt.Errorf("unmarshaling session document: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}
