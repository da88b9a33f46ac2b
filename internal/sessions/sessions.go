// Package sessions manages contact sessions: the short-lived identity a
// widget visitor gets before they can open conversations.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/store"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Store persists contact sessions.
type Store interface {
	InsertContactSession(ctx context.Context, cs support.ContactSession) error
	GetContactSession(ctx context.Context, id uuid.UUID) (*support.ContactSession, error)
	DeleteExpiredContactSessions(ctx context.Context, before time.Time) (int64, error)
}

// Validation reasons.
const (
	ReasonNotFound = "contact session not found"
	ReasonExpired  = "contact session expired"
)

// CreateInput is what the widget submits to start a session.
type CreateInput struct {
	Name           string                   `json:"name"`
	Email          string                   `json:"email"`
	OrganizationID string                   `json:"organization_id"`
	Metadata       *support.SessionMetadata `json:"metadata,omitempty"`
}

// Validation is the outcome of checking a session ID.
type Validation struct {
	Valid   bool                    `json:"valid"`
	Reason  string                  `json:"reason,omitempty"`
	Session *support.ContactSession `json:"contact_session,omitempty"`
}

type Service struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(s Store, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		store:  s,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create starts a session that expires after the configured TTL.
func (s *Service) Create(ctx context.Context, in CreateInput) (uuid.UUID, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Name == "":
		return uuid.Nil, support.BadRequest("name is required")
	case in.Email == "":
		return uuid.Nil, support.BadRequest("email is required")
	case in.OrganizationID == "":
		return uuid.Nil, support.BadRequest("organization_id is required")
	}

	now := s.now()
	cs := support.ContactSession{
		ID:             uuid.New(),
		Name:           in.Name,
		Email:          in.Email,
		OrganizationID: in.OrganizationID,
		ExpiresAt:      now.Add(s.ttl),
		Metadata:       in.Metadata,
		CreatedAt:      now,
	}
	if err := s.store.InsertContactSession(ctx, cs); err != nil {
		return uuid.Nil, fmt.Errorf("create contact session: %w", err)
	}
	s.logger.Info("contact session created", "contact_session_id", cs.ID, "organization_id", cs.OrganizationID)
	return cs.ID, nil
}

// Validate reports whether the session exists and has not expired.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (Validation, error) {
	cs, err := s.store.GetContactSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Validation{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Validation{}, fmt.Errorf("get contact session: %w", err)
	}
	if cs.Expired(s.now()) {
		return Validation{Reason: ReasonExpired}, nil
	}
	return Validation{Valid: true, Session: cs}, nil
}

// Require returns the session, or UNAUTHORIZED when it is missing or expired.
func (s *Service) Require(ctx context.Context, id uuid.UUID) (*support.ContactSession, error) {
	v, err := s.Validate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.Valid {
		return nil, support.Unauthorized("Invalid session")
	}
	return v.Session, nil
}

// Get returns a session regardless of expiry, or nil when it is gone.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*support.ContactSession, error) {
	cs, err := s.store.GetContactSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact session: %w", err)
	}
	return cs, nil
}

// SweepExpired deletes expired sessions that no conversation refers to.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredContactSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("swept expired contact sessions", "count", n)
	}
	return n, nil
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.logger.Error("sweep expired contact sessions failed", "error", err)
			}
		}
	}
}
