package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/supportdesk/internal/agent"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
	"github.com/MikeSquared-Agency/supportdesk/internal/testutil"
)

type fakeConversations struct {
	conv      *support.Conversation
	err       error
	escalated []uuid.UUID
	resolved  []uuid.UUID
}

func (f *fakeConversations) GetByThreadID(_ context.Context, threadID uuid.UUID) (*support.Conversation, error) {
	if f.conv == nil || f.conv.ThreadID != threadID {
		return nil, support.NotFound("Conversation not found")
	}
	return f.conv, nil
}

func (f *fakeConversations) Escalate(_ context.Context, threadID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.escalated = append(f.escalated, threadID)
	return nil
}

func (f *fakeConversations) Resolve(_ context.Context, threadID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.resolved = append(f.resolved, threadID)
	return nil
}

type fakeSearcher struct {
	namespace string
	limit     int
	entries   []support.SearchEntry
}

func (f *fakeSearcher) Search(_ context.Context, namespace, _ string, limit int) ([]support.SearchEntry, error) {
	f.namespace = namespace
	f.limit = limit
	return f.entries, nil
}

type savedMessage struct {
	threadID  uuid.UUID
	role      string
	content   string
	agentName string
}

type fakeMessages struct {
	saved []savedMessage
}

func (f *fakeMessages) SaveMessage(_ context.Context, threadID uuid.UUID, role, content, agentName string) (support.Message, error) {
	f.saved = append(f.saved, savedMessage{threadID, role, content, agentName})
	return support.Message{ID: uuid.New(), ThreadID: threadID, Role: role, Content: content, AgentName: agentName}, nil
}

func (f *fakeMessages) Name() string { return "Support Agent" }

func TestSearch_InterpretsResults(t *testing.T) {
	threadID := uuid.New()
	convs := &fakeConversations{conv: &support.Conversation{ID: uuid.New(), OrganizationID: "org_1", ThreadID: threadID}}
	searcher := &fakeSearcher{entries: []support.SearchEntry{
		{Title: "refunds.md", Text: "Refunds take 5 days."},
		{Title: "shipping.md", Text: "We ship worldwide."},
	}}
	model := testutil.NewScriptedModel(testutil.Text("Refunds take 5 days."))

	out, err := NewSearch(convs, searcher, model).Call(context.Background(), threadID,
		agent.ToolCall{Name: "searchTool", Args: map[string]any{"query": "refund time"}})
	require.NoError(t, err)
	assert.Equal(t, "Refunds take 5 days.", out)
	assert.Equal(t, "org_1", searcher.namespace)
	assert.Equal(t, 5, searcher.limit)

	require.Len(t, model.Requests, 1)
	req := model.Requests[0]
	assert.Equal(t, interpretPrompt, req.System)
	assert.Contains(t, req.Messages[0].Text, "User Asked: refund time")
	assert.Contains(t, req.Messages[0].Text, "Found Results: refunds.md, shipping.md.")
}

func TestSearch_ConversationMissing(t *testing.T) {
	model := testutil.NewScriptedModel()
	out, err := NewSearch(&fakeConversations{}, &fakeSearcher{}, model).Call(context.Background(), uuid.New(),
		agent.ToolCall{Args: map[string]any{"query": "q"}})
	require.NoError(t, err)
	assert.Equal(t, "Conversation not found", out)
	assert.Zero(t, model.Calls())
}

func TestSearch_MissingThread(t *testing.T) {
	out, err := NewSearch(&fakeConversations{}, &fakeSearcher{}, testutil.NewScriptedModel()).Call(context.Background(), uuid.Nil,
		agent.ToolCall{Args: map[string]any{"query": "q"}})
	require.NoError(t, err)
	assert.Equal(t, "Thread ID is required", out)
}

func TestContextText(t *testing.T) {
	got := ContextText([]support.SearchEntry{{Title: "a", Text: "x"}, {Text: "y"}})
	assert.Equal(t, "Found Results: a.\n Here is the context: x\ny", got)
}

func TestEscalate(t *testing.T) {
	threadID := uuid.New()
	convs := &fakeConversations{}
	msgs := &fakeMessages{}

	out, err := NewEscalate(convs, msgs).Call(context.Background(), threadID, agent.ToolCall{})
	require.NoError(t, err)
	assert.Equal(t, "Conversation escalated", out)
	assert.Equal(t, []uuid.UUID{threadID}, convs.escalated)
	require.Len(t, msgs.saved, 1)
	assert.Equal(t, savedMessage{threadID, support.RoleAssistant, "Conversation escalated to a human agent", "Support Agent"}, msgs.saved[0])
}

func TestResolve(t *testing.T) {
	threadID := uuid.New()
	convs := &fakeConversations{}
	msgs := &fakeMessages{}

	out, err := NewResolve(convs, msgs).Call(context.Background(), threadID, agent.ToolCall{})
	require.NoError(t, err)
	assert.Equal(t, "Conversation resolved", out)
	assert.Equal(t, []uuid.UUID{threadID}, convs.resolved)
	require.Len(t, msgs.saved, 1)
	assert.Equal(t, "Conversation resolved", msgs.saved[0].content)
}

func TestTransition_Errors(t *testing.T) {
	msgs := &fakeMessages{}

	out, err := NewResolve(&fakeConversations{}, msgs).Call(context.Background(), uuid.Nil, agent.ToolCall{})
	require.NoError(t, err)
	assert.Equal(t, "Missing threadId", out)

	out, err = NewEscalate(&fakeConversations{err: support.NotFound("Conversation not found")}, msgs).
		Call(context.Background(), uuid.New(), agent.ToolCall{})
	require.NoError(t, err)
	assert.Equal(t, "Conversation not found", out)

	_, err = NewEscalate(&fakeConversations{err: errors.New("db down")}, msgs).
		Call(context.Background(), uuid.New(), agent.ToolCall{})
	require.Error(t, err)
	assert.Empty(t, msgs.saved)
}
