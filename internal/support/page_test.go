package support

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	k := Keyset{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC), ID: uuid.New()}

	got, err := DecodeCursor(EncodeCursor(k))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CreatedAt.Equal(k.CreatedAt))
	assert.Equal(t, k.ID, got.ID)
}

func TestDecodeCursor_Empty(t *testing.T) {
	got, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeCursor_Garbage(t *testing.T) {
	for _, c := range []string{"!!!", "bm9jb2xvbg", "YWJjOmRlZg"} {
		_, err := DecodeCursor(c)
		assert.True(t, HasCode(err, CodeBadRequest), "cursor %q", c)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, PageRequest{}.Normalize().Limit)
	assert.Equal(t, MaxPageSize, PageRequest{Limit: 5000}.Normalize().Limit)
	assert.Equal(t, 7, PageRequest{Limit: 7}.Normalize().Limit)
}

func TestPageOf(t *testing.T) {
	base := time.Now().UTC()
	rows := make([]Keyset, 4)
	for i := range rows {
		rows[i] = Keyset{CreatedAt: base.Add(-time.Duration(i) * time.Minute), ID: uuid.New()}
	}
	key := func(k Keyset) Keyset { return k }

	full := PageOf(rows, 3, key)
	assert.Len(t, full.Page, 3)
	assert.False(t, full.IsDone)
	next, err := DecodeCursor(full.ContinueCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[2].ID, next.ID)

	last := PageOf(rows[:2], 3, key)
	assert.True(t, last.IsDone)
	assert.Empty(t, last.ContinueCursor)

	empty := PageOf[Keyset](nil, 3, key)
	assert.NotNil(t, empty.Page)
	assert.True(t, empty.IsDone)
}

func TestParseConversationStatus(t *testing.T) {
	s, err := ParseConversationStatus("escalated")
	require.NoError(t, err)
	assert.Equal(t, StatusEscalated, s)

	_, err = ParseConversationStatus("closed")
	assert.True(t, HasCode(err, CodeBadRequest))
}

func TestContactSessionExpired(t *testing.T) {
	now := time.Now()
	s := &ContactSession{ExpiresAt: now}
	assert.False(t, s.Expired(now), "expiry is strict")
	assert.True(t, s.Expired(now.Add(time.Millisecond)))
}
