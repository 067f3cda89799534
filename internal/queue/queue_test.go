package queue_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamline/roamline/internal/cache"
	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/queue"
)

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err, "open cache store")
	t.Cleanup(func() {
		_ = store.Close()
	})
	return queue.New(store)
}

func TestQueue_Enqueue_PreservesOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{
		Trip: domain.Trip{ID: "local-1", Name: "First"},
	}))
	require.NoError(t, q.Enqueue(ctx, queue.ActionStop, queue.StopPayload{
		Stop: domain.TripStop{ID: "local-2", TripID: "local-1"},
	}))
	require.NoError(t, q.Enqueue(ctx, queue.ActionDelete, queue.DeletePayload{
		Entity: queue.EntityStop, ID: "local-2", TripID: "local-1",
	}))

	items, err := q.PeekAll(ctx)

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, queue.ActionTrip, items[0].Action)
	assert.Equal(t, queue.ActionStop, items[1].Action)
	assert.Equal(t, queue.ActionDelete, items[2].Action)
	assert.False(t, items[0].EnqueuedAt.IsZero(), "enqueue timestamp is stamped")
}

func TestQueue_PeekAll_Empty(t *testing.T) {
	q := newTestQueue(t)

	items, err := q.PeekAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, items)
}

// The queue payloads survive a persist/reload cycle with their concrete
// types intact — the envelope's action tag drives decoding.
func TestQueue_PayloadsRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{
		Trip: domain.Trip{ID: "local-1", Name: "Desert Loop"},
	}))
	require.NoError(t, q.Enqueue(ctx, queue.ActionReorder, queue.ReorderPayload{
		TripID: "t1",
		Orders: []queue.StopOrder{{StopID: "s1", StopOrder: 1}, {StopID: "s2", StopOrder: 0}},
	}))

	items, err := q.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	tripPayload, ok := items[0].Payload.(queue.TripPayload)
	require.True(t, ok, "payload decodes to its concrete type")
	assert.Equal(t, "Desert Loop", tripPayload.Trip.Name)

	reorder, ok := items[1].Payload.(queue.ReorderPayload)
	require.True(t, ok)
	require.Len(t, reorder.Orders, 2)
	assert.Equal(t, "s1", reorder.Orders[0].StopID)
}

func TestQueue_Clear(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{
		Trip: domain.Trip{ID: "local-1"},
	}))
	require.NoError(t, q.Clear(ctx))

	items, err := q.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestQueue_Retain_KeepsTail(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	for _, id := range []string{"local-1", "local-2", "local-3"} {
		require.NoError(t, q.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{
			Trip: domain.Trip{ID: id},
		}))
	}

	// The first two applied remotely; keep from index 2 on.
	require.NoError(t, q.Retain(ctx, 2))

	items, err := q.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "local-3", items[0].Payload.(queue.TripPayload).Trip.ID)
}

func TestQueue_Retain_ZeroIsNoop(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{
		Trip: domain.Trip{ID: "local-1"},
	}))
	require.NoError(t, q.Retain(ctx, 0))

	items, err := q.PeekAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestQueue_Retain_PastEndClears(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{
		Trip: domain.Trip{ID: "local-1"},
	}))
	require.NoError(t, q.Retain(ctx, 5))

	items, err := q.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// A queue entry with an action this code cannot interpret must fail decoding
// loudly instead of being silently dropped.
func TestMutation_UnknownAction_Error(t *testing.T) {
	var m queue.Mutation
	err := json.Unmarshal([]byte(`{"action":"compact","payload":{}}`), &m)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}
