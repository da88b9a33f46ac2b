package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// InsertContactSession persists a new widget visitor session.
func (s *Store) InsertContactSession(ctx context.Context, cs support.ContactSession) error {
	var meta []byte
	if cs.Metadata != nil {
		var err error
		meta, err = json.Marshal(cs.Metadata)
		if err != nil {
			return fmt.Errorf("marshal session metadata: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO contact_sessions (id, name, email, organization_id, expires_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cs.ID, cs.Name, cs.Email, cs.OrganizationID, cs.ExpiresAt, meta, cs.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact session: %w", err)
	}
	return nil
}

// GetContactSession fetches a session by ID. Expired sessions are still returned.
func (s *Store) GetContactSession(ctx context.Context, id uuid.UUID) (*support.ContactSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, organization_id, expires_at, metadata, created_at
		FROM contact_sessions WHERE id = $1`, id)

	var cs support.ContactSession
	var meta []byte
	if err := row.Scan(&cs.ID, &cs.Name, &cs.Email, &cs.OrganizationID, &cs.ExpiresAt, &meta, &cs.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	if len(meta) > 0 {
		cs.Metadata = &support.SessionMetadata{}
		if err := json.Unmarshal(meta, cs.Metadata); err != nil {
			return nil, fmt.Errorf("parse session metadata: %w", err)
		}
	}
	return &cs, nil
}

// DeleteExpiredContactSessions removes sessions that expired before the cutoff.
// Sessions still referenced by a conversation are kept so the inbox can show
// the contact.
func (s *Store) DeleteExpiredContactSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM contact_sessions cs
		WHERE cs.expires_at < $1
		  AND NOT EXISTS (SELECT 1 FROM conversations c WHERE c.contact_session_id = cs.id)`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
