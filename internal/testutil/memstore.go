// Package testutil provides in-memory stand-ins for the Postgres store so
// services can be tested without a database.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/store"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// MemStore implements the store methods used by the services. Listings are
// newest first by insertion order, and cursors are resolved by record ID.
//
// Thread-safety: all methods are safe for concurrent use.
type MemStore struct {
	mu sync.Mutex

	Sessions      map[uuid.UUID]support.ContactSession
	Threads       map[uuid.UUID]support.Thread
	Messages      []support.Message
	Conversations []support.Conversation
	Calls         []support.LiveCall
	Plugins       []support.Plugin
	Files         []support.File
	Contents      map[uuid.UUID][]byte
	Chunks        []support.Chunk

	// SearchResults is returned by SearchChunks when set.
	SearchResults []support.SearchEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		Sessions: make(map[uuid.UUID]support.ContactSession),
		Threads:  make(map[uuid.UUID]support.Thread),
		Contents: make(map[uuid.UUID][]byte),
	}
}

// --- contact sessions ---

func (m *MemStore) InsertContactSession(_ context.Context, cs support.ContactSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[cs.ID] = cs
	return nil
}

func (m *MemStore) GetContactSession(_ context.Context, id uuid.UUID) (*support.ContactSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.Sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &cs, nil
}

func (m *MemStore) DeleteExpiredContactSessions(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	referenced := make(map[uuid.UUID]bool)
	for _, c := range m.Conversations {
		referenced[c.ContactSessionID] = true
	}
	for id, cs := range m.Sessions {
		if cs.ExpiresAt.Before(before) && !referenced[id] {
			delete(m.Sessions, id)
			n++
		}
	}
	return n, nil
}

// --- threads ---

func (m *MemStore) InsertThread(_ context.Context, t support.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Threads[t.ID] = t
	return nil
}

func (m *MemStore) InsertMessage(_ context.Context, msg support.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Threads[msg.ThreadID]; !ok {
		return store.ErrNotFound
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *MemStore) ListMessages(_ context.Context, threadID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []support.Message
	for i := len(m.Messages) - 1; i >= 0; i-- {
		if m.Messages[i].ThreadID == threadID {
			rows = append(rows, m.Messages[i])
		}
	}
	return paginate(rows, page, func(msg support.Message) support.Keyset {
		return support.Keyset{CreatedAt: msg.CreatedAt, ID: msg.ID}
	})
}

func (m *MemStore) RecentMessages(_ context.Context, threadID uuid.UUID, n int) ([]support.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []support.Message
	for _, msg := range m.Messages {
		if msg.ThreadID == threadID {
			rows = append(rows, msg)
		}
	}
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

// ThreadMessages returns a thread's messages in insertion order.
func (m *MemStore) ThreadMessages(threadID uuid.UUID) []support.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []support.Message
	for _, msg := range m.Messages {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out
}

// --- conversations ---

func (m *MemStore) InsertConversation(_ context.Context, c support.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Conversations = append(m.Conversations, c)
	return nil
}

func (m *MemStore) GetConversation(_ context.Context, id uuid.UUID) (*support.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Conversations {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) GetConversationByThread(_ context.Context, threadID uuid.UUID) (*support.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Conversations {
		if c.ThreadID == threadID {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) UpdateConversationStatus(_ context.Context, id uuid.UUID, status support.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Conversations {
		if m.Conversations[i].ID == id {
			m.Conversations[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MemStore) ListConversations(_ context.Context, f store.ConversationFilter, page support.PageRequest) (support.Page[support.Conversation], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []support.Conversation
	for i := len(m.Conversations) - 1; i >= 0; i-- {
		c := m.Conversations[i]
		if f.OrganizationID != "" && c.OrganizationID != f.OrganizationID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.ContactSessionID != uuid.Nil && c.ContactSessionID != f.ContactSessionID {
			continue
		}
		rows = append(rows, c)
	}
	return paginate(rows, page, func(c support.Conversation) support.Keyset {
		return support.Keyset{CreatedAt: c.CreatedAt, ID: c.ID}
	})
}

// --- live calls ---

func (m *MemStore) InsertLiveCall(_ context.Context, c support.LiveCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, c)
	return nil
}

func (m *MemStore) GetLiveCall(_ context.Context, id uuid.UUID) (*support.LiveCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Calls {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) ListLiveCalls(_ context.Context, organizationID string) ([]support.LiveCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []support.LiveCall
	for _, c := range m.Calls {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) EndLiveCall(_ context.Context, id uuid.UUID, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Calls {
		if m.Calls[i].ID == id {
			m.Calls[i].Status = support.CallEnded
			t := endedAt
			m.Calls[i].EndedAt = &t
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MemStore) UpdateLiveCallState(_ context.Context, id uuid.UUID, status support.LiveCallStatus, alert support.AlertLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Calls {
		if m.Calls[i].ID == id {
			m.Calls[i].Status = status
			m.Calls[i].AlertLevel = alert
			return nil
		}
	}
	return store.ErrNotFound
}

// --- plugins ---

func (m *MemStore) GetPlugin(_ context.Context, organizationID, service string) (*support.Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Plugins {
		if p.OrganizationID == organizationID && p.Service == service {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) UpsertPlugin(_ context.Context, organizationID, service, secretName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Plugins {
		if m.Plugins[i].OrganizationID == organizationID && m.Plugins[i].Service == service {
			m.Plugins[i].SecretName = secretName
			return nil
		}
	}
	m.Plugins = append(m.Plugins, support.Plugin{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Service:        service,
		SecretName:     secretName,
		CreatedAt:      time.Now().UTC(),
	})
	return nil
}

func (m *MemStore) DeletePlugin(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.Plugins {
		if p.ID == id {
			m.Plugins = append(m.Plugins[:i], m.Plugins[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// --- files & knowledge ---

func (m *MemStore) InsertFile(_ context.Context, f support.File, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files = append(m.Files, f)
	m.Contents[f.ID] = content
	return nil
}

func (m *MemStore) UpdateFileStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Files {
		if m.Files[i].ID == id {
			m.Files[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MemStore) GetFile(_ context.Context, id uuid.UUID) (*support.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.Files {
		if f.ID == id {
			return &f, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) GetFileContent(_ context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.Contents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return content, nil
}

func (m *MemStore) ListFiles(_ context.Context, organizationID string, page support.PageRequest) (support.Page[support.File], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []support.File
	for i := len(m.Files) - 1; i >= 0; i-- {
		if m.Files[i].OrganizationID == organizationID {
			rows = append(rows, m.Files[i])
		}
	}
	return paginate(rows, page, func(f support.File) support.Keyset {
		return support.Keyset{CreatedAt: f.CreatedAt, ID: f.ID}
	})
}

func (m *MemStore) DeleteFile(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, f := range m.Files {
		if f.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	m.Files = append(m.Files[:idx], m.Files[idx+1:]...)
	delete(m.Contents, id)
	kept := m.Chunks[:0]
	for _, c := range m.Chunks {
		if c.FileID != id {
			kept = append(kept, c)
		}
	}
	m.Chunks = kept
	return nil
}

func (m *MemStore) InsertChunks(_ context.Context, chunks []support.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Chunks = append(m.Chunks, chunks...)
	return nil
}

func (m *MemStore) SearchChunks(_ context.Context, namespace string, _ []float32, limit int) ([]support.SearchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SearchResults != nil {
		return m.SearchResults, nil
	}
	var out []support.SearchEntry
	for _, c := range m.Chunks {
		if c.Namespace != namespace {
			continue
		}
		out = append(out, support.SearchEntry{FileID: c.FileID, Title: c.Title, Text: c.Text, Score: 1})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// paginate applies a cursor to rows that are already newest first.
func paginate[T any](rows []T, page support.PageRequest, key func(T) support.Keyset) (support.Page[T], error) {
	page = page.Normalize()
	after, err := support.DecodeCursor(page.Cursor)
	if err != nil {
		return support.Page[T]{}, err
	}
	if after != nil {
		start := len(rows)
		for i, r := range rows {
			if key(r).ID == after.ID {
				start = i + 1
				break
			}
		}
		rows = rows[start:]
	}
	if len(rows) > page.Limit+1 {
		rows = rows[:page.Limit+1]
	}
	return support.PageOf(rows, page.Limit, key), nil
}
