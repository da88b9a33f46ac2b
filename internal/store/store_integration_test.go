//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_ConversationLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	org := "org_it_" + uuid.New().String()[:8]
	now := time.Now().UTC().Truncate(time.Microsecond)

	sess := support.ContactSession{
		ID:             uuid.New(),
		Name:           "Ada",
		Email:          "ada@example.com",
		OrganizationID: org,
		ExpiresAt:      now.Add(24 * time.Hour),
		Metadata:       &support.SessionMetadata{Timezone: "Europe/London"},
		CreatedAt:      now,
	}
	if err := s.InsertContactSession(ctx, sess); err != nil {
		t.Fatalf("InsertContactSession failed: %v", err)
	}
	got, err := s.GetContactSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetContactSession failed: %v", err)
	}
	if got.Metadata == nil || got.Metadata.Timezone != "Europe/London" {
		t.Errorf("expected metadata timezone, got %+v", got.Metadata)
	}

	thread := support.Thread{ID: uuid.New(), UserID: org, CreatedAt: now}
	if err := s.InsertThread(ctx, thread); err != nil {
		t.Fatalf("InsertThread failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		c := support.Conversation{
			ID:               uuid.New(),
			OrganizationID:   org,
			ContactSessionID: sess.ID,
			ThreadID:         thread.ID,
			Status:           support.StatusUnresolved,
			CreatedAt:        now.Add(time.Duration(i) * time.Second),
		}
		if i > 0 {
			th := support.Thread{ID: uuid.New(), UserID: org, CreatedAt: now}
			if err := s.InsertThread(ctx, th); err != nil {
				t.Fatalf("InsertThread failed: %v", err)
			}
			c.ThreadID = th.ID
		}
		if err := s.InsertConversation(ctx, c); err != nil {
			t.Fatalf("InsertConversation failed: %v", err)
		}
	}

	first, err := s.ListConversations(ctx, ConversationFilter{OrganizationID: org}, support.PageRequest{Limit: 2})
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(first.Page) != 2 || first.IsDone {
		t.Fatalf("expected a full first page, got %d items done=%v", len(first.Page), first.IsDone)
	}
	second, err := s.ListConversations(ctx, ConversationFilter{OrganizationID: org}, support.PageRequest{Limit: 2, Cursor: first.ContinueCursor})
	if err != nil {
		t.Fatalf("ListConversations page 2 failed: %v", err)
	}
	if len(second.Page) != 1 || !second.IsDone {
		t.Fatalf("expected last page with 1 item, got %d done=%v", len(second.Page), second.IsDone)
	}

	conv, err := s.GetConversationByThread(ctx, thread.ID)
	if err != nil {
		t.Fatalf("GetConversationByThread failed: %v", err)
	}
	if err := s.UpdateConversationStatus(ctx, conv.ID, support.StatusEscalated); err != nil {
		t.Fatalf("UpdateConversationStatus failed: %v", err)
	}
	escalated, err := s.ListConversations(ctx, ConversationFilter{OrganizationID: org, Status: support.StatusEscalated}, support.PageRequest{})
	if err != nil {
		t.Fatalf("ListConversations filter failed: %v", err)
	}
	if len(escalated.Page) != 1 || escalated.Page[0].ID != conv.ID {
		t.Errorf("expected only the escalated conversation, got %+v", escalated.Page)
	}

	if _, err := s.GetConversation(ctx, uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_MessagesOrdering(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	thread := support.Thread{ID: uuid.New(), UserID: "org_it", CreatedAt: now}
	if err := s.InsertThread(ctx, thread); err != nil {
		t.Fatalf("InsertThread failed: %v", err)
	}
	for i, text := range []string{"one", "two", "three"} {
		m := support.Message{
			ID:        uuid.New(),
			ThreadID:  thread.ID,
			Role:      support.RoleUser,
			Content:   text,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		if err := s.InsertMessage(ctx, m); err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
	}

	page, err := s.ListMessages(ctx, thread.ID, support.PageRequest{Limit: 1})
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(page.Page) != 1 || page.Page[0].Content != "three" {
		t.Errorf("expected newest message first, got %+v", page.Page)
	}

	recent, err := s.RecentMessages(ctx, thread.ID, 2)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Errorf("expected chronological tail [two three], got %+v", recent)
	}
}

func TestIntegration_ExpiredSessionSweep(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := support.ContactSession{
		ID: uuid.New(), Name: "Old", Email: "old@example.com", OrganizationID: "org_it",
		ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-25 * time.Hour),
	}
	if err := s.InsertContactSession(ctx, expired); err != nil {
		t.Fatalf("InsertContactSession failed: %v", err)
	}

	n, err := s.DeleteExpiredContactSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredContactSessions failed: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least one expired session removed, got %d", n)
	}
	if _, err := s.GetContactSession(ctx, expired.ID); err != ErrNotFound {
		t.Errorf("expected expired session gone, got %v", err)
	}

	kept := support.ContactSession{
		ID: uuid.New(), Name: "Kept", Email: "kept@example.com", OrganizationID: "org_it",
		ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-25 * time.Hour),
	}
	if err := s.InsertContactSession(ctx, kept); err != nil {
		t.Fatalf("InsertContactSession failed: %v", err)
	}
	thread := support.Thread{ID: uuid.New(), UserID: "org_it", CreatedAt: now}
	if err := s.InsertThread(ctx, thread); err != nil {
		t.Fatalf("InsertThread failed: %v", err)
	}
	conv := support.Conversation{
		ID: uuid.New(), OrganizationID: "org_it", ContactSessionID: kept.ID, ThreadID: thread.ID,
		Status: support.StatusUnresolved, CreatedAt: now,
	}
	if err := s.InsertConversation(ctx, conv); err != nil {
		t.Fatalf("InsertConversation failed: %v", err)
	}
	if _, err := s.DeleteExpiredContactSessions(ctx, now); err != nil {
		t.Fatalf("DeleteExpiredContactSessions failed: %v", err)
	}
	if _, err := s.GetContactSession(ctx, kept.ID); err != nil {
		t.Errorf("expected session with a conversation to survive the sweep, got %v", err)
	}
}

func TestIntegration_LiveCallsNewestCreatedFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	org := "org_it_" + uuid.New().String()[:8]
	now := time.Now().UTC().Truncate(time.Microsecond)

	older := support.LiveCall{
		ID: uuid.New(), OrganizationID: org, Customer: "A", Intent: "Billing", Status: support.CallQueued,
		AlertLevel: support.AlertNormal, StartedAt: now.Add(-time.Minute), CreatedAt: now,
	}
	newer := support.LiveCall{
		ID: uuid.New(), OrganizationID: org, Customer: "B", Intent: "Billing", Status: support.CallQueued,
		AlertLevel: support.AlertNormal, StartedAt: now.Add(-4 * time.Minute), CreatedAt: now.Add(time.Second),
	}
	for _, c := range []support.LiveCall{older, newer} {
		if err := s.InsertLiveCall(ctx, c); err != nil {
			t.Fatalf("InsertLiveCall failed: %v", err)
		}
	}

	calls, err := s.ListLiveCalls(ctx, org)
	if err != nil {
		t.Fatalf("ListLiveCalls failed: %v", err)
	}
	if len(calls) != 2 || calls[0].ID != newer.ID {
		t.Errorf("expected newest created call first, got %+v", calls)
	}
}
