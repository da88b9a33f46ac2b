// Package tools holds the support agent's tools: knowledge-base search,
// escalation to a human, and resolution.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/agent"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Conversations is the slice of the conversation service the tools need.
type Conversations interface {
	GetByThreadID(ctx context.Context, threadID uuid.UUID) (*support.Conversation, error)
	Escalate(ctx context.Context, threadID uuid.UUID) error
	Resolve(ctx context.Context, threadID uuid.UUID) error
}

// Searcher queries the knowledge base.
type Searcher interface {
	Search(ctx context.Context, namespace, query string, limit int) ([]support.SearchEntry, error)
}

// Messages writes messages onto a thread on behalf of the agent.
type Messages interface {
	SaveMessage(ctx context.Context, threadID uuid.UUID, role, content, agentName string) (support.Message, error)
	Name() string
}

const searchLimit = 5

const interpretPrompt = "You interpret knowledge base search results and answer the user's query based on the context provided. "

// Search answers a question from the organization's knowledge base.
type Search struct {
	convs    Conversations
	searcher Searcher
	model    agent.Model
}

func NewSearch(convs Conversations, searcher Searcher, model agent.Model) *Search {
	return &Search{convs: convs, searcher: searcher, model: model}
}

func (t *Search) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        "searchTool",
		Description: "Search for information in the knowledge base",
		Params: []agent.ToolParam{{
			Name:        "query",
			Description: "The Search Query to find relevant information in the knowledge base",
			Required:    true,
		}},
	}
}

func (t *Search) Call(ctx context.Context, threadID uuid.UUID, call agent.ToolCall) (string, error) {
	if threadID == uuid.Nil {
		return "Thread ID is required", nil
	}
	query := strings.TrimSpace(call.StringArg("query"))
	if query == "" {
		return "A search query is required", nil
	}

	conv, err := t.convs.GetByThreadID(ctx, threadID)
	if err != nil {
		if support.HasCode(err, support.CodeNotFound) {
			return "Conversation not found", nil
		}
		return "", err
	}

	entries, err := t.searcher.Search(ctx, conv.OrganizationID, query, searchLimit)
	if err != nil {
		return "", fmt.Errorf("search knowledge base: %w", err)
	}

	resp, err := t.model.Generate(ctx, agent.Request{
		System: interpretPrompt,
		Messages: []agent.Turn{{
			Role: agent.TurnUser,
			Text: "User Asked: " + query + "\n\n Search Results: " + ContextText(entries),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("interpret search results: %w", err)
	}
	return resp.Text, nil
}

// ContextText renders search hits as the interpretation prompt's context block.
func ContextText(entries []support.SearchEntry) string {
	titles := make([]string, 0, len(entries))
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Title != "" {
			titles = append(titles, e.Title)
		}
		texts = append(texts, e.Text)
	}
	return "Found Results: " + strings.Join(titles, ", ") +
		".\n Here is the context: " + strings.Join(texts, "\n")
}

// Escalate hands the conversation to a human operator.
type Escalate struct {
	convs    Conversations
	messages Messages
}

func NewEscalate(convs Conversations, messages Messages) *Escalate {
	return &Escalate{convs: convs, messages: messages}
}

func (t *Escalate) Spec() agent.ToolSpec {
	return agent.ToolSpec{Name: "escalateConversation", Description: "Escalates a conversation"}
}

func (t *Escalate) Call(ctx context.Context, threadID uuid.UUID, _ agent.ToolCall) (string, error) {
	return transition(ctx, threadID, t.convs.Escalate, t.messages,
		"Conversation escalated to a human agent", "Conversation escalated")
}

// Resolve closes the conversation.
type Resolve struct {
	convs    Conversations
	messages Messages
}

func NewResolve(convs Conversations, messages Messages) *Resolve {
	return &Resolve{convs: convs, messages: messages}
}

func (t *Resolve) Spec() agent.ToolSpec {
	return agent.ToolSpec{Name: "resolveConversation", Description: "Resolves a conversation"}
}

func (t *Resolve) Call(ctx context.Context, threadID uuid.UUID, _ agent.ToolCall) (string, error) {
	return transition(ctx, threadID, t.convs.Resolve, t.messages,
		"Conversation resolved", "Conversation resolved")
}

func transition(ctx context.Context, threadID uuid.UUID, apply func(context.Context, uuid.UUID) error, messages Messages, notice, result string) (string, error) {
	if threadID == uuid.Nil {
		return "Missing threadId", nil
	}
	if err := apply(ctx, threadID); err != nil {
		var se *support.Error
		if errors.As(err, &se) {
			return se.Message, nil
		}
		return "", err
	}
	if _, err := messages.SaveMessage(ctx, threadID, support.RoleAssistant, notice, messages.Name()); err != nil {
		return "", fmt.Errorf("save notice: %w", err)
	}
	return result, nil
}
