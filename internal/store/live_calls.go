package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

const liveCallColumns = `id, organization_id, customer, intent, status, sentiment_score, alert_level,
	started_at, ended_at, plan, last_interaction, transcript, created_at`

func scanLiveCall(row pgx.Row) (*support.LiveCall, error) {
	var c support.LiveCall
	var transcript []byte
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Customer, &c.Intent, &c.Status, &c.SentimentScore, &c.AlertLevel,
		&c.StartedAt, &c.EndedAt, &c.Plan, &c.LastInteraction, &transcript, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(transcript, &c.Transcript); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return &c, nil
}

// InsertLiveCall persists a live call record.
func (s *Store) InsertLiveCall(ctx context.Context, c support.LiveCall) error {
	transcript, err := json.Marshal(c.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO live_calls (id, organization_id, customer, intent, status, sentiment_score, alert_level,
			started_at, ended_at, plan, last_interaction, transcript, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.OrganizationID, c.Customer, c.Intent, c.Status, c.SentimentScore, c.AlertLevel,
		c.StartedAt, c.EndedAt, c.Plan, c.LastInteraction, transcript, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert live call: %w", err)
	}
	return nil
}

// GetLiveCall fetches a live call by ID.
func (s *Store) GetLiveCall(ctx context.Context, id uuid.UUID) (*support.LiveCall, error) {
	return scanLiveCall(s.pool.QueryRow(ctx, `SELECT `+liveCallColumns+` FROM live_calls WHERE id = $1`, id))
}

// ListLiveCalls returns every call of an organization, most recently created first.
func (s *Store) ListLiveCalls(ctx context.Context, organizationID string) ([]support.LiveCall, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+liveCallColumns+` FROM live_calls
		WHERE organization_id = $1 ORDER BY created_at DESC, id DESC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list live calls: %w", err)
	}
	defer rows.Close()

	var out []support.LiveCall
	for rows.Next() {
		c, err := scanLiveCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan live call: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// EndLiveCall marks a call ended at the given time.
func (s *Store) EndLiveCall(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE live_calls SET status = $1, ended_at = $2 WHERE id = $3`,
		support.CallEnded, endedAt, id)
	if err != nil {
		return fmt.Errorf("end live call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLiveCallState sets the status and alert level of a call.
func (s *Store) UpdateLiveCallState(ctx context.Context, id uuid.UUID, status support.LiveCallStatus, alert support.AlertLevel) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE live_calls SET status = $1, alert_level = $2 WHERE id = $3`,
		status, alert, id)
	if err != nil {
		return fmt.Errorf("update live call: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
