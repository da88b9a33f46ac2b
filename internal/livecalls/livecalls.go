// Package livecalls serves the operator's live voice-call dashboard.
package livecalls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/hermes"
	"github.com/MikeSquared-Agency/supportdesk/internal/store"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Store persists live calls.
type Store interface {
	InsertLiveCall(ctx context.Context, c support.LiveCall) error
	GetLiveCall(ctx context.Context, id uuid.UUID) (*support.LiveCall, error)
	ListLiveCalls(ctx context.Context, organizationID string) ([]support.LiveCall, error)
	EndLiveCall(ctx context.Context, id uuid.UUID, endedAt time.Time) error
	UpdateLiveCallState(ctx context.Context, id uuid.UUID, status support.LiveCallStatus, alert support.AlertLevel) error
}

// Publisher emits domain events.
type Publisher interface {
	Publish(subject string, data any) error
}

// Random is the source of randomness for simulated calls. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Board is the dashboard payload: active calls plus KPIs.
type Board struct {
	Calls []support.LiveCall `json:"calls"`
	KPI   KPI                `json:"kpi"`
}

type Service struct {
	store     Store
	publisher Publisher
	rng       Random
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds the service. publisher may be nil.
func NewService(s Store, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		publisher: publisher,
		rng:       globalRand{},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns the organization's active calls, newest first, with KPIs.
func (s *Service) List(ctx context.Context, orgID string) (*Board, error) {
	calls, err := s.store.ListLiveCalls(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list live calls: %w", err)
	}
	active, kpi := ComputeKPI(calls)
	return &Board{Calls: active, KPI: kpi}, nil
}

// Get returns one call. A call in another organization is UNAUTHORIZED.
func (s *Service) Get(ctx context.Context, orgID string, callID uuid.UUID) (*support.LiveCall, error) {
	call, err := s.store.GetLiveCall(ctx, callID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, support.NotFound("Call not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get live call: %w", err)
	}
	if call.OrganizationID != orgID {
		return nil, support.Unauthorized("You are not authorized to access this call")
	}
	return call, nil
}

// Simulate inserts a randomly generated call for demos and load testing.
func (s *Service) Simulate(ctx context.Context, orgID string) (uuid.UUID, error) {
	now := s.now()

	customer := customerNames[s.rng.IntN(len(customerNames))]
	intent := intents[s.rng.IntN(len(intents))]
	plan := plans[s.rng.IntN(len(plans))]
	sentiment := SentimentFromRoll(s.rng.Float64())
	template := sampleTranscripts[s.rng.IntN(len(sampleTranscripts))]
	status := StatusFor(s.rng.Float64())

	transcript := make([]support.TranscriptLine, len(template))
	for i, line := range template {
		line.Timestamp = fmt.Sprintf("%02d:%02d:%02d", now.Hour(), now.Minute(), i*8)
		transcript[i] = line
	}

	call := support.LiveCall{
		ID:              uuid.New(),
		OrganizationID:  orgID,
		Customer:        customer,
		Intent:          intent,
		Status:          status,
		SentimentScore:  sentiment,
		AlertLevel:      AlertLevelFor(status, sentiment),
		StartedAt:       now.Add(-time.Duration(s.rng.IntN(300_000)) * time.Millisecond),
		Plan:            plan,
		LastInteraction: fmt.Sprintf("%d days ago", s.rng.IntN(14)+1),
		Transcript:      transcript,
		CreatedAt:       now,
	}
	if err := s.store.InsertLiveCall(ctx, call); err != nil {
		return uuid.Nil, fmt.Errorf("insert live call: %w", err)
	}
	s.logger.Info("simulated live call", "call_id", call.ID, "organization_id", orgID, "status", call.Status)
	return call.ID, nil
}

// End marks a call ended now.
func (s *Service) End(ctx context.Context, orgID string, callID uuid.UUID) error {
	if _, err := s.ownedCall(ctx, orgID, callID); err != nil {
		return err
	}
	if err := s.store.EndLiveCall(ctx, callID, s.now()); err != nil {
		return fmt.Errorf("end live call: %w", err)
	}
	s.logger.Info("live call ended", "call_id", callID)
	return nil
}

// Intervene requests a human handoff on a call.
func (s *Service) Intervene(ctx context.Context, orgID string, callID uuid.UUID) error {
	call, err := s.ownedCall(ctx, orgID, callID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateLiveCallState(ctx, callID, support.CallHandoffRequested, support.AlertCritical); err != nil {
		return fmt.Errorf("update live call: %w", err)
	}
	s.logger.Info("operator intervened on live call", "call_id", callID)

	if s.publisher != nil {
		err := s.publisher.Publish(hermes.SubjectLiveCallHandoff, hermes.LiveCallHandoff{
			CallID:         call.ID,
			OrganizationID: call.OrganizationID,
			Customer:       call.Customer,
			Intent:         call.Intent,
			SentimentScore: call.SentimentScore,
			Timestamp:      s.now(),
		})
		if err != nil {
			s.logger.Warn("publish event failed", "subject", hermes.SubjectLiveCallHandoff, "error", err)
		}
	}
	return nil
}

// ownedCall loads a call; a missing call and a call in another organization
// are both NOT_FOUND.
func (s *Service) ownedCall(ctx context.Context, orgID string, callID uuid.UUID) (*support.LiveCall, error) {
	call, err := s.store.GetLiveCall(ctx, callID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && call.OrganizationID != orgID) {
		return nil, support.NotFound("Call not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get live call: %w", err)
	}
	return call, nil
}
