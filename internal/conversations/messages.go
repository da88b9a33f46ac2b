package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/store"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// SendFromContact posts the visitor's prompt and runs the agent on the thread.
// It returns the agent's reply, which is empty when the agent only ran tools.
func (s *Service) SendFromContact(ctx context.Context, prompt string, threadID, sessionID uuid.UUID) (string, error) {
	session, err := s.sessions.Require(ctx, sessionID)
	if err != nil {
		return "", err
	}
	conv, err := s.byThread(ctx, threadID)
	if err != nil {
		return "", err
	}
	if conv.ContactSessionID != session.ID {
		return "", support.Unauthorized("Invalid session")
	}
	if conv.Status == support.StatusResolved {
		return "", support.BadRequest("Conversation resolved")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", support.BadRequest("prompt is required")
	}

	reply, err := s.agent.GenerateText(ctx, threadID, prompt)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return reply, nil
}

// SendFromOperator posts an operator's reply. An operator replying to an
// unresolved conversation takes it over, so it becomes escalated.
func (s *Service) SendFromOperator(ctx context.Context, orgID, operatorName string, conversationID uuid.UUID, prompt string) (support.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return support.Message{}, support.ConversationNotFound("Conversation not found")
	}
	if err != nil {
		return support.Message{}, fmt.Errorf("get conversation: %w", err)
	}
	if conv.Status == support.StatusResolved {
		return support.Message{}, support.BadRequest("Conversation resolved")
	}
	if conv.OrganizationID != orgID {
		return support.Message{}, support.Unauthorized("You are not authorized to access this conversation")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return support.Message{}, support.BadRequest("prompt is required")
	}

	msg, err := s.agent.SaveMessage(ctx, conv.ThreadID, support.RoleAssistant, prompt, operatorName)
	if err != nil {
		return support.Message{}, fmt.Errorf("save operator message: %w", err)
	}

	if conv.Status == support.StatusUnresolved {
		if err := s.setStatus(ctx, conv, support.StatusEscalated, operatorName); err != nil {
			return support.Message{}, err
		}
	}
	return msg, nil
}

// ListMessages returns a page of an organization's thread, newest first.
func (s *Service) ListMessages(ctx context.Context, orgID string, threadID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error) {
	conv, err := s.byThread(ctx, threadID)
	if err != nil {
		return support.Page[support.Message]{}, err
	}
	if conv.OrganizationID != orgID {
		return support.Page[support.Message]{}, support.Unauthorized("You are not authorized to access this conversation")
	}
	return s.agent.ListMessages(ctx, threadID, page)
}

// ListMessagesForContact returns a page of the visitor's own thread, newest first.
func (s *Service) ListMessagesForContact(ctx context.Context, threadID, sessionID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error) {
	session, err := s.sessions.Require(ctx, sessionID)
	if err != nil {
		return support.Page[support.Message]{}, err
	}
	conv, err := s.byThread(ctx, threadID)
	if err != nil {
		return support.Page[support.Message]{}, err
	}
	if conv.ContactSessionID != session.ID {
		return support.Page[support.Message]{}, support.Unauthorized("Invalid session")
	}
	return s.agent.ListMessages(ctx, threadID, page)
}

func (s *Service) byThread(ctx context.Context, threadID uuid.UUID) (*support.Conversation, error) {
	conv, err := s.store.GetConversationByThread(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, support.ConversationNotFound("Conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation by thread: %w", err)
	}
	return conv, nil
}
