// Package conversations owns the conversation lifecycle: widget visitors open
// them, the AI agent escalates or resolves them, and operators take them over.
package conversations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/supportdesk/internal/hermes"
	"github.com/MikeSquared-Agency/supportdesk/internal/slack"
	"github.com/MikeSquared-Agency/supportdesk/internal/store"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Store persists conversations.
type Store interface {
	InsertConversation(ctx context.Context, c support.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*support.Conversation, error)
	GetConversationByThread(ctx context.Context, threadID uuid.UUID) (*support.Conversation, error)
	UpdateConversationStatus(ctx context.Context, id uuid.UUID, status support.ConversationStatus) error
	ListConversations(ctx context.Context, f store.ConversationFilter, page support.PageRequest) (support.Page[support.Conversation], error)
}

// Agent is the agent runtime that owns conversation threads.
type Agent interface {
	Name() string
	CreateThread(ctx context.Context, userID string) (uuid.UUID, error)
	SaveMessage(ctx context.Context, threadID uuid.UUID, role, content, agentName string) (support.Message, error)
	ListMessages(ctx context.Context, threadID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error)
	LastMessage(ctx context.Context, threadID uuid.UUID) (*support.Message, error)
	GenerateText(ctx context.Context, threadID uuid.UUID, prompt string) (string, error)
}

// Sessions resolves contact sessions.
type Sessions interface {
	Require(ctx context.Context, id uuid.UUID) (*support.ContactSession, error)
	Get(ctx context.Context, id uuid.UUID) (*support.ContactSession, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier alerts operators about escalations.
type Notifier interface {
	PostEscalation(ctx context.Context, esc slack.Escalation) (string, error)
}

// Options configures a Service. Publisher and Notifier may be nil.
type Options struct {
	Greeting  string
	Publisher Publisher
	Notifier  Notifier
}

// DefaultGreeting opens every new conversation.
const DefaultGreeting = "Hey! How can I help you today?"

// lastMessageConcurrency bounds the per-page last-message lookups.
const lastMessageConcurrency = 8

type Service struct {
	store     Store
	agent     Agent
	sessions  Sessions
	greeting  string
	publisher Publisher
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(s Store, agent Agent, sessions Sessions, opts Options, logger *slog.Logger) *Service {
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	return &Service{
		store:     s,
		agent:     agent,
		sessions:  sessions,
		greeting:  opts.Greeting,
		publisher: opts.Publisher,
		notifier:  opts.Notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PublicConversation is what the widget sees of a conversation.
type PublicConversation struct {
	ID       uuid.UUID                  `json:"id"`
	Status   support.ConversationStatus `json:"status"`
	ThreadID uuid.UUID                  `json:"thread_id"`
}

// Entry is a conversation with its newest message, as shown in inbox lists.
type Entry struct {
	support.Conversation
	LastMessage    *support.Message        `json:"last_message"`
	ContactSession *support.ContactSession `json:"contact_session,omitempty"`
}

// Detail is a conversation with its contact session.
type Detail struct {
	support.Conversation
	ContactSession *support.ContactSession `json:"contact_session"`
}

// Create opens a conversation for a contact session and greets the visitor.
func (s *Service) Create(ctx context.Context, orgID string, sessionID uuid.UUID) (uuid.UUID, error) {
	session, err := s.sessions.Require(ctx, sessionID)
	if err != nil {
		return uuid.Nil, err
	}
	if orgID == "" {
		return uuid.Nil, support.BadRequest("organization_id is required")
	}
	if session.OrganizationID != orgID {
		return uuid.Nil, support.Unauthorized("Invalid session")
	}

	threadID, err := s.agent.CreateThread(ctx, orgID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create thread: %w", err)
	}
	if _, err := s.agent.SaveMessage(ctx, threadID, support.RoleAssistant, s.greeting, s.agent.Name()); err != nil {
		return uuid.Nil, fmt.Errorf("save greeting: %w", err)
	}

	conv := support.Conversation{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		ContactSessionID: session.ID,
		ThreadID:         threadID,
		Status:           support.StatusUnresolved,
		CreatedAt:        s.now(),
	}
	if err := s.store.InsertConversation(ctx, conv); err != nil {
		return uuid.Nil, fmt.Errorf("insert conversation: %w", err)
	}

	s.logger.Info("conversation created", "conversation_id", conv.ID, "organization_id", orgID)
	s.publish(hermes.SubjectConversationCreated, s.event(conv, "", "contact"))
	return conv.ID, nil
}

// GetOne returns a conversation to the contact session that owns it.
func (s *Service) GetOne(ctx context.Context, conversationID, sessionID uuid.UUID) (*PublicConversation, error) {
	session, err := s.sessions.Require(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	conv, err := s.store.GetConversation(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, support.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.ContactSessionID != session.ID {
		return nil, support.Unauthorized("Invalid session")
	}
	return &PublicConversation{ID: conv.ID, Status: conv.Status, ThreadID: conv.ThreadID}, nil
}

// ListForSession returns the visitor's conversations, newest first.
func (s *Service) ListForSession(ctx context.Context, orgID string, sessionID uuid.UUID, page support.PageRequest) (support.Page[Entry], error) {
	session, err := s.sessions.Require(ctx, sessionID)
	if err != nil {
		return support.Page[Entry]{}, err
	}
	if orgID != "" && session.OrganizationID != orgID {
		return support.Page[Entry]{}, support.Unauthorized("Invalid session")
	}

	convs, err := s.store.ListConversations(ctx, store.ConversationFilter{
		OrganizationID:   session.OrganizationID,
		ContactSessionID: session.ID,
	}, page)
	if err != nil {
		return support.Page[Entry]{}, fmt.Errorf("list conversations: %w", err)
	}
	return s.withLastMessages(ctx, convs, false)
}

// List returns an organization's conversations for the operator inbox.
func (s *Service) List(ctx context.Context, orgID string, status support.ConversationStatus, page support.PageRequest) (support.Page[Entry], error) {
	if status != "" {
		if _, err := support.ParseConversationStatus(string(status)); err != nil {
			return support.Page[Entry]{}, err
		}
	}
	convs, err := s.store.ListConversations(ctx, store.ConversationFilter{OrganizationID: orgID, Status: status}, page)
	if err != nil {
		return support.Page[Entry]{}, fmt.Errorf("list conversations: %w", err)
	}
	return s.withLastMessages(ctx, convs, true)
}

func (s *Service) withLastMessages(ctx context.Context, convs support.Page[support.Conversation], withSession bool) (support.Page[Entry], error) {
	out := support.MapPage(convs, func(c support.Conversation) Entry { return Entry{Conversation: c} })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lastMessageConcurrency)
	for i := range out.Page {
		entry := &out.Page[i]
		g.Go(func() error {
			last, err := s.agent.LastMessage(gctx, entry.ThreadID)
			if err != nil {
				return fmt.Errorf("last message for %s: %w", entry.ID, err)
			}
			entry.LastMessage = last
			if withSession {
				cs, err := s.sessions.Get(gctx, entry.ContactSessionID)
				if err != nil {
					return fmt.Errorf("contact session for %s: %w", entry.ID, err)
				}
				entry.ContactSession = cs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return support.Page[Entry]{}, err
	}
	return out, nil
}

// Get returns one of the organization's conversations with its contact session.
func (s *Service) Get(ctx context.Context, orgID string, conversationID uuid.UUID) (*Detail, error) {
	conv, err := s.owned(ctx, orgID, conversationID, support.NotFound)
	if err != nil {
		return nil, err
	}
	cs, err := s.sessions.Get(ctx, conv.ContactSessionID)
	if err != nil {
		return nil, fmt.Errorf("get contact session: %w", err)
	}
	return &Detail{Conversation: *conv, ContactSession: cs}, nil
}

// UpdateStatus sets a conversation's status on behalf of an operator.
func (s *Service) UpdateStatus(ctx context.Context, orgID string, conversationID uuid.UUID, status string, actor string) (*support.Conversation, error) {
	next, err := support.ParseConversationStatus(status)
	if err != nil {
		return nil, err
	}
	conv, err := s.owned(ctx, orgID, conversationID, support.NotFound)
	if err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, conv, next, actor); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetByThreadID returns the conversation that owns a thread.
func (s *Service) GetByThreadID(ctx context.Context, threadID uuid.UUID) (*support.Conversation, error) {
	conv, err := s.store.GetConversationByThread(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, support.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation by thread: %w", err)
	}
	return conv, nil
}

// Escalate hands a thread's conversation to a human and notifies operators.
func (s *Service) Escalate(ctx context.Context, threadID uuid.UUID) error {
	conv, err := s.GetByThreadID(ctx, threadID)
	if err != nil {
		return err
	}
	prev := conv.Status
	if err := s.setStatus(ctx, conv, support.StatusEscalated, s.agent.Name()); err != nil {
		return err
	}
	s.publish(hermes.SubjectConversationEscalated, s.event(*conv, prev, s.agent.Name()))
	s.notifyEscalation(ctx, conv)
	return nil
}

// Resolve closes a thread's conversation.
func (s *Service) Resolve(ctx context.Context, threadID uuid.UUID) error {
	conv, err := s.GetByThreadID(ctx, threadID)
	if err != nil {
		return err
	}
	return s.setStatus(ctx, conv, support.StatusResolved, s.agent.Name())
}

// setStatus updates conv in place and publishes the change.
func (s *Service) setStatus(ctx context.Context, conv *support.Conversation, next support.ConversationStatus, actor string) error {
	prev := conv.Status
	if err := s.store.UpdateConversationStatus(ctx, conv.ID, next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return support.NotFound("Conversation not found")
		}
		return fmt.Errorf("update conversation status: %w", err)
	}
	conv.Status = next
	s.logger.Info("conversation status changed",
		"conversation_id", conv.ID, "from", prev, "to", next, "actor", actor)
	s.publish(hermes.SubjectConversationStatusChanged, s.event(*conv, prev, actor))
	return nil
}

// owned loads a conversation and checks it belongs to orgID. missing builds the
// not-found error, which differs between the inbox and the message endpoints.
func (s *Service) owned(ctx context.Context, orgID string, id uuid.UUID, missing func(string) error) (*support.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, missing("Conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.OrganizationID != orgID {
		return nil, support.Unauthorized("You are not authorized to access this conversation")
	}
	return conv, nil
}

func (s *Service) notifyEscalation(ctx context.Context, conv *support.Conversation) {
	if s.notifier == nil {
		return
	}
	esc := slack.Escalation{OrganizationID: conv.OrganizationID, ConversationID: conv.ID}
	if cs, err := s.sessions.Get(ctx, conv.ContactSessionID); err == nil && cs != nil {
		esc.ContactName = cs.Name
		esc.ContactEmail = cs.Email
	}
	if last, err := s.lastContactMessage(ctx, conv.ThreadID); err == nil {
		esc.LastMessage = last
	}
	if _, err := s.notifier.PostEscalation(ctx, esc); err != nil {
		s.logger.Warn("escalation notification failed", "conversation_id", conv.ID, "error", err)
	}
}

// lastContactMessage finds the visitor's newest message among the recent ones.
func (s *Service) lastContactMessage(ctx context.Context, threadID uuid.UUID) (string, error) {
	page, err := s.agent.ListMessages(ctx, threadID, support.PageRequest{Limit: support.DefaultPageSize})
	if err != nil {
		return "", err
	}
	for _, m := range page.Page {
		if m.Role == support.RoleUser {
			return m.Content, nil
		}
	}
	return "", nil
}

func (s *Service) event(conv support.Conversation, prev support.ConversationStatus, actor string) hermes.ConversationEvent {
	return hermes.ConversationEvent{
		ConversationID: conv.ID,
		OrganizationID: conv.OrganizationID,
		ThreadID:       conv.ThreadID,
		Status:         string(conv.Status),
		PreviousStatus: string(prev),
		Actor:          actor,
		Timestamp:      s.now(),
	}
}

func (s *Service) publish(subject string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		s.logger.Warn("publish event failed", "subject", subject, "error", err)
	}
}
