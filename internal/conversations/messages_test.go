package conversations_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
	"github.com/MikeSquared-Agency/supportdesk/internal/testutil"
)

func TestSendFromContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid, conv := f.open(t, "org_1")
	f.model.Responses = append(f.model.Responses, testutil.Text("Happy to help."))

	reply, err := f.svc.SendFromContact(ctx, "hello", conv.ThreadID, sid)
	require.NoError(t, err)
	assert.Equal(t, "Happy to help.", reply)

	msgs := f.mem.ThreadMessages(conv.ThreadID)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, "Happy to help.", msgs[2].Content)
}

func TestSendFromContact_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid, conv := f.open(t, "org_1")

	_, err := f.svc.SendFromContact(ctx, "hi", conv.ThreadID, uuid.New())
	assert.True(t, support.HasCode(err, support.CodeUnauthorized))

	_, err = f.svc.SendFromContact(ctx, "hi", uuid.New(), sid)
	assert.True(t, support.HasCode(err, support.CodeConversationNotFound))

	other := f.session(t, "org_1")
	_, err = f.svc.SendFromContact(ctx, "hi", conv.ThreadID, other)
	assert.True(t, support.HasCode(err, support.CodeUnauthorized))

	require.NoError(t, f.svc.Resolve(ctx, conv.ThreadID))
	_, err = f.svc.SendFromContact(ctx, "hi", conv.ThreadID, sid)
	e, ok := support.AsError(err)
	require.True(t, ok)
	assert.Equal(t, support.CodeBadRequest, e.Code)
	assert.Equal(t, "Conversation resolved", e.Message)
	assert.Zero(t, f.model.Calls())
}

func TestSendFromOperator_TakesOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, conv := f.open(t, "org_1")

	msg, err := f.svc.SendFromOperator(ctx, "org_1", "Grace", conv.ID, "I'm here to help")
	require.NoError(t, err)
	assert.Equal(t, "Grace", msg.AgentName)
	assert.Equal(t, support.RoleAssistant, msg.Role)

	got, err := f.mem.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, support.StatusEscalated, got.Status)
}

func TestSendFromOperator_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, conv := f.open(t, "org_1")

	_, err := f.svc.SendFromOperator(ctx, "org_1", "Grace", uuid.New(), "hi")
	assert.True(t, support.HasCode(err, support.CodeConversationNotFound))

	_, err = f.svc.SendFromOperator(ctx, "org_2", "Grace", conv.ID, "hi")
	assert.True(t, support.HasCode(err, support.CodeUnauthorized))

	require.NoError(t, f.svc.Resolve(ctx, conv.ThreadID))
	// Resolution is checked before the organization.
	_, err = f.svc.SendFromOperator(ctx, "org_2", "Grace", conv.ID, "hi")
	assert.True(t, support.HasCode(err, support.CodeBadRequest))
}

func TestListMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid, conv := f.open(t, "org_1")
	_, err := f.agent.SaveMessage(ctx, conv.ThreadID, support.RoleUser, "second", "")
	require.NoError(t, err)

	page, err := f.svc.ListMessages(ctx, "org_1", conv.ThreadID, support.PageRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Page, 1)
	assert.Equal(t, "second", page.Page[0].Content)
	assert.False(t, page.IsDone)

	_, err = f.svc.ListMessages(ctx, "org_2", conv.ThreadID, support.PageRequest{})
	assert.True(t, support.HasCode(err, support.CodeUnauthorized))
	_, err = f.svc.ListMessages(ctx, "org_1", uuid.New(), support.PageRequest{})
	assert.True(t, support.HasCode(err, support.CodeConversationNotFound))

	mine, err := f.svc.ListMessagesForContact(ctx, conv.ThreadID, sid, support.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, mine.Page, 2)

	other := f.session(t, "org_1")
	_, err = f.svc.ListMessagesForContact(ctx, conv.ThreadID, other, support.PageRequest{})
	assert.True(t, support.HasCode(err, support.CodeUnauthorized))
}
