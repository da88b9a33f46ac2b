package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// InsertThread persists a new agent thread.
func (s *Store) InsertThread(ctx context.Context, t support.Thread) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO threads (id, user_id, created_at) VALUES ($1, $2, $3)`,
		t.ID, t.UserID, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

// InsertMessage appends a message to a thread.
func (s *Store) InsertMessage(ctx context.Context, m support.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, thread_id, role, content, agent_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ThreadID, m.Role, m.Content, m.AgentName, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns a thread's messages newest first, one page at a time.
func (s *Store) ListMessages(ctx context.Context, threadID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error) {
	page = page.Normalize()
	after, err := support.DecodeCursor(page.Cursor)
	if err != nil {
		return support.Page[support.Message]{}, err
	}

	var rows pgx.Rows
	if after == nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, thread_id, role, content, agent_name, created_at
			FROM messages WHERE thread_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2`,
			threadID, page.Limit+1)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, thread_id, role, content, agent_name, created_at
			FROM messages WHERE thread_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC LIMIT $4`,
			threadID, after.CreatedAt, after.ID, page.Limit+1)
	}
	if err != nil {
		return support.Page[support.Message]{}, fmt.Errorf("list messages: %w", err)
	}

	msgs, err := collectMessages(rows)
	if err != nil {
		return support.Page[support.Message]{}, err
	}
	return support.PageOf(msgs, page.Limit, func(m support.Message) support.Keyset {
		return support.Keyset{CreatedAt: m.CreatedAt, ID: m.ID}
	}), nil
}

// RecentMessages returns the last n messages of a thread in chronological order.
func (s *Store) RecentMessages(ctx context.Context, threadID uuid.UUID, n int) ([]support.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, thread_id, role, content, agent_name, created_at FROM (
			SELECT id, thread_id, role, content, agent_name, created_at
			FROM messages WHERE thread_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		) recent ORDER BY created_at ASC, id ASC`,
		threadID, n)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]support.Message, error) {
	defer rows.Close()
	var out []support.Message
	for rows.Next() {
		var m support.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.AgentName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return out, nil
}
