package support

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest asks for the page after Cursor. An empty cursor starts from the newest record.
type PageRequest struct {
	Cursor string
	Limit  int
}

// Normalize clamps the limit into [1, MaxPageSize], defaulting to DefaultPageSize.
func (p PageRequest) Normalize() PageRequest {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageSize
	case p.Limit > MaxPageSize:
		p.Limit = MaxPageSize
	}
	return p
}

// Page is one slice of a newest-first listing.
type Page[T any] struct {
	Page           []T    `json:"page"`
	ContinueCursor string `json:"continue_cursor"`
	IsDone         bool   `json:"is_done"`
}

// Keyset is the (created_at, id) position a cursor points at.
type Keyset struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// EncodeCursor renders a keyset as an opaque cursor.
func EncodeCursor(k Keyset) string {
	raw := strconv.FormatInt(k.CreatedAt.UnixNano(), 10) + ":" + k.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by EncodeCursor. An empty cursor yields nil.
func DecodeCursor(cursor string) (*Keyset, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, BadRequest("invalid cursor")
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, BadRequest("invalid cursor")
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, BadRequest("invalid cursor")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, BadRequest("invalid cursor")
	}
	return &Keyset{CreatedAt: time.Unix(0, nanos).UTC(), ID: uid}, nil
}

// PageOf trims rows fetched with limit+1 into a page. key reports the keyset of a row.
func PageOf[T any](rows []T, limit int, key func(T) Keyset) Page[T] {
	if len(rows) <= limit {
		if rows == nil {
			rows = []T{}
		}
		return Page[T]{Page: rows, IsDone: true}
	}
	rows = rows[:limit]
	return Page[T]{
		Page:           rows,
		ContinueCursor: EncodeCursor(key(rows[len(rows)-1])),
		IsDone:         false,
	}
}

// MapPage converts the entries of a page, keeping its cursor.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{Page: make([]U, len(p.Page)), ContinueCursor: p.ContinueCursor, IsDone: p.IsDone}
	for i, v := range p.Page {
		out.Page[i] = fn(v)
	}
	return out
}
