package livecalls_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/supportdesk/internal/hermes"
	"github.com/MikeSquared-Agency/supportdesk/internal/livecalls"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
	"github.com/MikeSquared-Agency/supportdesk/internal/testutil"
)

// scriptedRandom returns queued values in call order.
type scriptedRandom struct {
	floats []float64
	ints   []int
}

func (r *scriptedRandom) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRandom) IntN(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

var now = time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)

func newService(t *testing.T) (*livecalls.Service, *testutil.MemStore, *testutil.Publisher) {
	t.Helper()
	mem := testutil.NewMemStore()
	pub := &testutil.Publisher{}
	svc := livecalls.NewService(mem, pub, testutil.Logger())
	svc.SetNow(func() time.Time { return now })
	return svc, mem, pub
}

func TestSimulate(t *testing.T) {
	svc, mem, _ := newService(t)
	svc.SetRandom(&scriptedRandom{
		// sentiment roll, status roll
		floats: []float64{0.1, 0.9},
		// customer, intent, plan, template, started offset ms, days-1
		ints: []int{2, 1, 3, 3, 60_000, 6},
	})

	id, err := svc.Simulate(context.Background(), "org_1")
	require.NoError(t, err)

	call, err := mem.GetLiveCall(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Emily Zhang", call.Customer)
	assert.Equal(t, "Billing Inquiry", call.Intent)
	assert.Equal(t, "Custom", call.Plan)
	assert.InDelta(t, 0.37, call.SentimentScore, 1e-9)
	assert.Equal(t, support.CallHandoffRequested, call.Status)
	assert.Equal(t, support.AlertCritical, call.AlertLevel)
	assert.Equal(t, now.Add(-time.Minute), call.StartedAt)
	assert.Equal(t, "7 days ago", call.LastInteraction)
	require.Len(t, call.Transcript, 2)
	assert.Equal(t, "14:05:00", call.Transcript[0].Timestamp)
	assert.Equal(t, "14:05:08", call.Transcript[1].Timestamp)
	assert.Equal(t, "user", call.Transcript[0].Sender)
}

func TestSimulate_LowSentimentWarns(t *testing.T) {
	svc, mem, _ := newService(t)
	svc.SetRandom(&scriptedRandom{floats: []float64{0.0, 0.1}, ints: []int{0, 0, 0, 0, 0, 0}})

	id, err := svc.Simulate(context.Background(), "org_1")
	require.NoError(t, err)
	call, err := mem.GetLiveCall(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, support.CallAIHandling, call.Status)
	assert.Equal(t, support.AlertWarning, call.AlertLevel)
	assert.Equal(t, "1 days ago", call.LastInteraction)
}

func TestList(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()
	ended := now.Add(-time.Minute)
	for _, c := range []support.LiveCall{
		{ID: uuid.New(), OrganizationID: "org_1", Status: support.CallAIHandling, StartedAt: now.Add(-3 * time.Minute), CreatedAt: now.Add(-3 * time.Minute)},
		{ID: uuid.New(), OrganizationID: "org_1", Status: support.CallHandoffRequested, StartedAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), OrganizationID: "org_1", Status: support.CallEnded, StartedAt: now.Add(-2 * time.Minute), EndedAt: &ended, CreatedAt: now.Add(-2 * time.Minute)},
		{ID: uuid.New(), OrganizationID: "org_2", Status: support.CallAIHandling, StartedAt: now, CreatedAt: now},
	} {
		require.NoError(t, mem.InsertLiveCall(ctx, c))
	}

	board, err := svc.List(ctx, "org_1")
	require.NoError(t, err)
	require.Len(t, board.Calls, 2)
	assert.Equal(t, support.CallHandoffRequested, board.Calls[0].Status, "newest first")
	assert.Equal(t, 2, board.KPI.LiveConcurrentCalls)
	assert.Equal(t, 50, board.KPI.InterventionRate)
	assert.Equal(t, float64(60_000), board.KPI.AvgResolutionMs)
}

func TestList_NewestSimulatedFirst(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	// The second call is created later but its start is backdated further.
	svc.SetRandom(&scriptedRandom{floats: []float64{0.5, 0.1}, ints: []int{0, 0, 0, 0, 10_000, 0}})
	first, err := svc.Simulate(ctx, "org_1")
	require.NoError(t, err)

	svc.SetNow(func() time.Time { return now.Add(time.Second) })
	svc.SetRandom(&scriptedRandom{floats: []float64{0.5, 0.1}, ints: []int{0, 0, 0, 0, 290_000, 0}})
	second, err := svc.Simulate(ctx, "org_1")
	require.NoError(t, err)

	board, err := svc.List(ctx, "org_1")
	require.NoError(t, err)
	require.Len(t, board.Calls, 2)
	assert.Equal(t, second, board.Calls[0].ID)
	assert.Equal(t, first, board.Calls[1].ID)
	assert.True(t, board.Calls[0].StartedAt.Before(board.Calls[1].StartedAt))
}

func TestGet(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()
	call := support.LiveCall{ID: uuid.New(), OrganizationID: "org_1", Status: support.CallQueued, StartedAt: now}
	require.NoError(t, mem.InsertLiveCall(ctx, call))

	got, err := svc.Get(ctx, "org_1", call.ID)
	require.NoError(t, err)
	assert.Equal(t, call.ID, got.ID)

	_, err = svc.Get(ctx, "org_2", call.ID)
	assert.True(t, support.HasCode(err, support.CodeUnauthorized))
	_, err = svc.Get(ctx, "org_1", uuid.New())
	assert.True(t, support.HasCode(err, support.CodeNotFound))
}

func TestEndAndIntervene(t *testing.T) {
	svc, mem, pub := newService(t)
	ctx := context.Background()
	call := support.LiveCall{ID: uuid.New(), OrganizationID: "org_1", Customer: "David Kim", Status: support.CallAIHandling, AlertLevel: support.AlertNormal, StartedAt: now.Add(-time.Minute)}
	require.NoError(t, mem.InsertLiveCall(ctx, call))

	// Another organization's call looks missing.
	assert.True(t, support.HasCode(svc.Intervene(ctx, "org_2", call.ID), support.CodeNotFound))
	assert.True(t, support.HasCode(svc.End(ctx, "org_2", call.ID), support.CodeNotFound))

	require.NoError(t, svc.Intervene(ctx, "org_1", call.ID))
	got, err := mem.GetLiveCall(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, support.CallHandoffRequested, got.Status)
	assert.Equal(t, support.AlertCritical, got.AlertLevel)
	require.Len(t, pub.Events, 1)
	assert.Equal(t, hermes.SubjectLiveCallHandoff, pub.Events[0].Subject)
	assert.Equal(t, "David Kim", pub.Events[0].Data.(hermes.LiveCallHandoff).Customer)

	require.NoError(t, svc.End(ctx, "org_1", call.ID))
	got, err = mem.GetLiveCall(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, support.CallEnded, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, now, *got.EndedAt)
}
