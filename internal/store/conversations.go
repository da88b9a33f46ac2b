package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// ConversationFilter narrows ListConversations. Zero fields are ignored.
type ConversationFilter struct {
	OrganizationID   string
	Status           support.ConversationStatus
	ContactSessionID uuid.UUID
}

const conversationColumns = `id, organization_id, contact_session_id, thread_id, status, created_at`

func scanConversation(row pgx.Row) (*support.Conversation, error) {
	var c support.Conversation
	if err := row.Scan(&c.ID, &c.OrganizationID, &c.ContactSessionID, &c.ThreadID, &c.Status, &c.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// InsertConversation persists a new conversation.
func (s *Store) InsertConversation(ctx context.Context, c support.Conversation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (id, organization_id, contact_session_id, thread_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.OrganizationID, c.ContactSessionID, c.ThreadID, c.Status, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// GetConversation fetches a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*support.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
}

// GetConversationByThread fetches the conversation that owns a thread.
func (s *Store) GetConversationByThread(ctx context.Context, threadID uuid.UUID) (*support.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE thread_id = $1`, threadID))
}

// UpdateConversationStatus sets the status of a conversation.
func (s *Store) UpdateConversationStatus(ctx context.Context, id uuid.UUID, status support.ConversationStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE conversations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update conversation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConversations returns conversations newest first, one page at a time.
func (s *Store) ListConversations(ctx context.Context, f ConversationFilter, page support.PageRequest) (support.Page[support.Conversation], error) {
	page = page.Normalize()
	after, err := support.DecodeCursor(page.Cursor)
	if err != nil {
		return support.Page[support.Conversation]{}, err
	}

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.OrganizationID != "" {
		where = append(where, "organization_id = "+arg(f.OrganizationID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.ContactSessionID != uuid.Nil {
		where = append(where, "contact_session_id = "+arg(f.ContactSessionID))
	}
	if after != nil {
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(after.CreatedAt), arg(after.ID)))
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(page.Limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return support.Page[support.Conversation]{}, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []support.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return support.Page[support.Conversation]{}, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return support.Page[support.Conversation]{}, fmt.Errorf("list conversations: %w", err)
	}

	return support.PageOf(out, page.Limit, func(c support.Conversation) support.Keyset {
		return support.Keyset{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}
