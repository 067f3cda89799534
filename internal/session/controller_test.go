package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamline/roamline/internal/cache"
	"github.com/roamline/roamline/internal/connectivity"
	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/queue"
	"github.com/roamline/roamline/internal/remote"
	"github.com/roamline/roamline/internal/session"
	"github.com/roamline/roamline/internal/syncer"
)

// mockBackend is a hand-written test double for remote.Backend.
type mockBackend struct {
	createTrip      func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	updateTrip      func(ctx context.Context, id string, trip domain.Trip) (domain.Trip, error)
	deleteTrip      func(ctx context.Context, id string) error
	addTripStop     func(ctx context.Context, tripID string, stop domain.TripStop) (domain.TripStop, error)
	updateTripStop  func(ctx context.Context, id string, stop domain.TripStop) (domain.TripStop, error)
	deleteTripStop  func(ctx context.Context, tripID, stopID string) error
	updateStopOrder func(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error)
	getTripByID     func(ctx context.Context, id string) (domain.Trip, error)

	// calls counts every remote invocation, so guest-isolation tests can
	// assert the network was never touched.
	calls int
}

func (m *mockBackend) CreateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	m.calls++
	return m.createTrip(ctx, trip)
}
func (m *mockBackend) UpdateTrip(ctx context.Context, id string, trip domain.Trip) (domain.Trip, error) {
	m.calls++
	return m.updateTrip(ctx, id, trip)
}
func (m *mockBackend) DeleteTrip(ctx context.Context, id string) error {
	m.calls++
	return m.deleteTrip(ctx, id)
}
func (m *mockBackend) AddTripStop(ctx context.Context, tripID string, stop domain.TripStop) (domain.TripStop, error) {
	m.calls++
	return m.addTripStop(ctx, tripID, stop)
}
func (m *mockBackend) UpdateTripStop(ctx context.Context, id string, stop domain.TripStop) (domain.TripStop, error) {
	m.calls++
	return m.updateTripStop(ctx, id, stop)
}
func (m *mockBackend) DeleteTripStop(ctx context.Context, tripID, stopID string) error {
	m.calls++
	return m.deleteTripStop(ctx, tripID, stopID)
}
func (m *mockBackend) UpdateStopOrder(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error) {
	m.calls++
	return m.updateStopOrder(ctx, tripID, stopID, order)
}
func (m *mockBackend) GetTripByID(ctx context.Context, id string) (domain.Trip, error) {
	m.calls++
	return m.getTripByID(ctx, id)
}

var _ remote.Backend = (*mockBackend)(nil)

var (
	registered = session.Actor{UserID: "user-1"}
	guest      = session.Actor{Guest: true}
)

// fixture wires a full engine (controller, processor, queue, cache, gate)
// onto a temp-dir sqlite store.
type fixture struct {
	controller *session.Controller
	queue      *queue.Queue
	repo       *cache.TripRepository
	gate       *connectivity.Manual
	backend    *mockBackend
}

func newFixture(t *testing.T, backend *mockBackend, online bool) *fixture {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err, "open cache store")
	t.Cleanup(func() {
		_ = store.Close()
	})

	q := queue.New(store)
	repo := cache.NewTripRepository(store)
	gate := connectivity.NewManual(online)
	processor := syncer.New(gate, q, backend, repo, nil)

	return &fixture{
		controller: session.New(gate, repo, q, backend, processor, nil),
		queue:      q,
		repo:       repo,
		gate:       gate,
		backend:    backend,
	}
}

func newStop(tripID string) domain.TripStop {
	return domain.TripStop{
		TripID:    tripID,
		StopOrder: 0,
		CheckIn:   openapi_types.Date{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		CheckOut:  openapi_types.Date{Time: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
}

// ---- decision table --------------------------------------------------------

// online + registered: cache and remote, synchronously; server id wins.
func TestCreateTrip_OnlineRegistered_RemoteIDWins(t *testing.T) {
	const serverID = "11111111-1111-1111-1111-111111111111"
	backend := &mockBackend{
		createTrip: func(_ context.Context, trip domain.Trip) (domain.Trip, error) {
			trip.ID = serverID
			return trip, nil
		},
	}
	f := newFixture(t, backend, true)
	ctx := context.Background()

	got, err := f.controller.CreateTrip(ctx, registered, domain.Trip{Name: "Desert Loop"})

	require.NoError(t, err)
	assert.Equal(t, serverID, got.ID)

	_, found, err := f.repo.GetCachedTrip(ctx, serverID)
	require.NoError(t, err)
	assert.True(t, found, "canonical record cached under the server id")

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "synchronous remote writes are never queued")
}

// online + guest: cache only, remote untouched.
func TestCreateTrip_OnlineGuest_LocalOnly(t *testing.T) {
	backend := &mockBackend{}
	f := newFixture(t, backend, true)
	ctx := context.Background()

	got, err := f.controller.CreateTrip(ctx, guest, domain.Trip{Name: "Desert Loop"})

	require.NoError(t, err)
	assert.True(t, domain.IsProvisionalID(got.ID), "guest trips keep their provisional id")
	assert.Zero(t, backend.calls, "guest writes never touch the network")

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "guest writes are never queued either")
}

// offline + registered: cache and queue.
func TestCreateTrip_OfflineRegistered_Queued(t *testing.T) {
	backend := &mockBackend{}
	f := newFixture(t, backend, false)
	ctx := context.Background()

	got, err := f.controller.CreateTrip(ctx, registered, domain.Trip{Name: "Desert Loop"})

	require.NoError(t, err)
	assert.True(t, domain.IsProvisionalID(got.ID))
	assert.Zero(t, backend.calls)

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queue.ActionTrip, items[0].Action)
	assert.Equal(t, got.ID, items[0].Payload.(queue.TripPayload).Trip.ID)
}

// offline + guest: cache only.
func TestCreateTrip_OfflineGuest_LocalOnly(t *testing.T) {
	backend := &mockBackend{}
	f := newFixture(t, backend, false)
	ctx := context.Background()

	got, err := f.controller.CreateTrip(ctx, guest, domain.Trip{Name: "Desert Loop"})

	require.NoError(t, err)
	assert.Zero(t, backend.calls)

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, found, err := f.repo.GetCachedTrip(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

// ---- failure behaviour -----------------------------------------------------

// A synchronous remote failure leaves the local write standing and surfaces
// the error; it does NOT silently queue the mutation.
func TestCreateTrip_OnlineRemoteFails_LocalWriteStands(t *testing.T) {
	backend := &mockBackend{
		createTrip: func(_ context.Context, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrRemote
		},
	}
	f := newFixture(t, backend, true)
	ctx := context.Background()

	got, err := f.controller.CreateTrip(ctx, registered, domain.Trip{Name: "Desert Loop"})

	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.True(t, domain.IsProvisionalID(got.ID), "provisional record returned despite the failure")

	_, found, lookupErr := f.repo.GetCachedTrip(ctx, got.ID)
	require.NoError(t, lookupErr)
	assert.True(t, found, "local write survives the remote failure")

	items, qErr := f.queue.PeekAll(ctx)
	require.NoError(t, qErr)
	assert.Empty(t, items, "only offline writes are queued")
}

func TestCreateTrip_InvalidInput(t *testing.T) {
	f := newFixture(t, &mockBackend{}, true)

	_, err := f.controller.CreateTrip(context.Background(), registered, domain.Trip{})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- deletes ---------------------------------------------------------------

// A trip that never reached the server needs no remote delete; nothing is
// queued, nothing is called.
func TestDeleteTrip_ProvisionalID_NothingQueued(t *testing.T) {
	backend := &mockBackend{}
	f := newFixture(t, backend, false)
	ctx := context.Background()

	created, err := f.controller.CreateTrip(ctx, registered, domain.Trip{Name: "Desert Loop"})
	require.NoError(t, err)
	require.NoError(t, f.queue.Clear(ctx)) // drop the queued create to isolate the delete

	require.NoError(t, f.controller.DeleteTrip(ctx, registered, created.ID))

	_, found, err := f.repo.GetCachedTrip(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, found, "optimistic local removal")

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, backend.calls)
}

func TestDeleteTrip_OfflineRegistered_QueuesDelete(t *testing.T) {
	const serverID = "11111111-1111-1111-1111-111111111111"
	f := newFixture(t, &mockBackend{}, false)
	ctx := context.Background()

	require.NoError(t, f.repo.CacheTrip(ctx, domain.Trip{ID: serverID, Name: "Desert Loop"}))

	require.NoError(t, f.controller.DeleteTrip(ctx, registered, serverID))

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	del := items[0].Payload.(queue.DeletePayload)
	assert.Equal(t, queue.EntityTrip, del.Entity)
	assert.Equal(t, serverID, del.ID)
}

// ---- stops -----------------------------------------------------------------

// The full offline round trip: add a stop offline, reconnect, drain. The
// provisional stop is replaced by the server record and the queue empties.
func TestAddStop_OfflineThenDrain(t *testing.T) {
	const tripID = "11111111-1111-1111-1111-111111111111"
	const serverStopID = "22222222-2222-2222-2222-222222222222"
	backend := &mockBackend{
		addTripStop: func(_ context.Context, tid string, stop domain.TripStop) (domain.TripStop, error) {
			stop.ID = serverStopID
			stop.TripID = tid
			return stop, nil
		},
	}
	f := newFixture(t, backend, false)
	ctx := context.Background()

	require.NoError(t, f.repo.CacheTrip(ctx, domain.Trip{ID: tripID, Name: "Desert Loop"}))

	added, err := f.controller.AddStop(ctx, registered, newStop(tripID))
	require.NoError(t, err)
	assert.True(t, domain.IsProvisionalID(added.ID))

	// Reconnect and drain.
	f.gate.SetOnline(true)
	res, err := f.controller.OnReconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncer.Result{Processed: 1}, res)

	trip, found, err := f.repo.GetCachedTrip(ctx, tripID)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, trip.Stops, 1)
	assert.Equal(t, serverStopID, trip.Stops[0].ID)

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// A whole trip built offline — create, then a stop — must sync in one drain:
// the trip create's server id carries through to the queued stop.
func TestOfflineTripAndStop_DrainAssignsServerIDs(t *testing.T) {
	const serverTripID = "11111111-1111-1111-1111-111111111111"
	const serverStopID = "22222222-2222-2222-2222-222222222222"
	backend := &mockBackend{
		createTrip: func(_ context.Context, trip domain.Trip) (domain.Trip, error) {
			trip.ID = serverTripID
			return trip, nil
		},
		addTripStop: func(_ context.Context, tid string, stop domain.TripStop) (domain.TripStop, error) {
			stop.ID = serverStopID
			stop.TripID = tid
			return stop, nil
		},
	}
	f := newFixture(t, backend, false)
	ctx := context.Background()

	created, err := f.controller.CreateTrip(ctx, registered, domain.Trip{Name: "Desert Loop"})
	require.NoError(t, err)
	require.True(t, domain.IsProvisionalID(created.ID))

	added, err := f.controller.AddStop(ctx, registered, newStop(created.ID))
	require.NoError(t, err)
	require.True(t, domain.IsProvisionalID(added.ID))

	f.gate.SetOnline(true)
	res, err := f.controller.OnReconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncer.Result{Processed: 2}, res)

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "nothing left behind after the drain")

	trip, found, err := f.repo.GetCachedTrip(ctx, serverTripID)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, trip.Stops, 1)
	assert.Equal(t, serverStopID, trip.Stops[0].ID)

	_, found, err = f.repo.GetCachedTrip(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, found, "provisional trip gone from the cache")
}

// Deleting an offline-created trip before it ever synced drops its queued
// create (and the stop queued against it); the next drain recreates nothing.
func TestDeleteTrip_ProvisionalWithQueuedCreate_DropsQueue(t *testing.T) {
	backend := &mockBackend{}
	f := newFixture(t, backend, false)
	ctx := context.Background()

	created, err := f.controller.CreateTrip(ctx, registered, domain.Trip{Name: "Desert Loop"})
	require.NoError(t, err)
	_, err = f.controller.AddStop(ctx, registered, newStop(created.ID))
	require.NoError(t, err)

	require.NoError(t, f.controller.DeleteTrip(ctx, registered, created.ID))

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "queued create and stop dropped with the trip")

	f.gate.SetOnline(true)
	res, err := f.controller.OnReconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncer.Result{}, res)
	assert.Zero(t, backend.calls, "nothing to replay, nothing resurrected")
}

func TestDeleteStop_ProvisionalID_NothingQueued(t *testing.T) {
	const tripID = "11111111-1111-1111-1111-111111111111"
	backend := &mockBackend{}
	f := newFixture(t, backend, false)
	ctx := context.Background()

	require.NoError(t, f.repo.CacheTrip(ctx, domain.Trip{ID: tripID, Name: "Desert Loop"}))
	added, err := f.controller.AddStop(ctx, registered, newStop(tripID))
	require.NoError(t, err)
	require.NoError(t, f.queue.Clear(ctx))

	require.NoError(t, f.controller.DeleteStop(ctx, registered, tripID, added.ID))

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, backend.calls)
}

func TestReorderStops_OfflineRegistered_QueuesSingleMutation(t *testing.T) {
	const tripID = "11111111-1111-1111-1111-111111111111"
	f := newFixture(t, &mockBackend{}, false)
	ctx := context.Background()

	s1 := newStop(tripID)
	s1.ID = "s1"
	s2 := newStop(tripID)
	s2.ID = "s2"
	s2.StopOrder = 1
	require.NoError(t, f.repo.CacheTrip(ctx, domain.Trip{
		ID: tripID, Name: "Desert Loop", Stops: []domain.TripStop{s1, s2},
	}))

	orders := []queue.StopOrder{{StopID: "s1", StopOrder: 1}, {StopID: "s2", StopOrder: 0}}
	require.NoError(t, f.controller.ReorderStops(ctx, registered, tripID, orders))

	// Local order flipped immediately.
	trip, _, err := f.repo.GetCachedTrip(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, trip.Stops, 2)
	assert.Equal(t, "s2", trip.Stops[0].ID)
	assert.Equal(t, "s1", trip.Stops[1].ID)

	items, err := f.queue.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queue.ActionReorder, items[0].Action)
}

func TestReorderStops_TripNotCached(t *testing.T) {
	f := newFixture(t, &mockBackend{}, false)

	err := f.controller.ReorderStops(context.Background(), registered, "missing", nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- reads -----------------------------------------------------------------

// A remote refresh failure degrades to the cached copy; locally-written state
// stays visible.
func TestGetTrip_RemoteFailure_ServesCache(t *testing.T) {
	const tripID = "11111111-1111-1111-1111-111111111111"
	backend := &mockBackend{
		getTripByID: func(_ context.Context, _ string) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrRemote
		},
	}
	f := newFixture(t, backend, true)
	ctx := context.Background()

	require.NoError(t, f.repo.CacheTrip(ctx, domain.Trip{ID: tripID, Name: "Cached Copy"}))

	got, found, err := f.controller.GetTrip(ctx, registered, tripID)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Cached Copy", got.Name)
}

func TestGetTrip_OnlineRegistered_RefreshesCache(t *testing.T) {
	const tripID = "11111111-1111-1111-1111-111111111111"
	backend := &mockBackend{
		getTripByID: func(_ context.Context, id string) (domain.Trip, error) {
			return domain.Trip{ID: id, Name: "Fresh From Server"}, nil
		},
	}
	f := newFixture(t, backend, true)
	ctx := context.Background()

	require.NoError(t, f.repo.CacheTrip(ctx, domain.Trip{ID: tripID, Name: "Stale"}))

	got, found, err := f.controller.GetTrip(ctx, registered, tripID)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Fresh From Server", got.Name)
}

func TestGetTrip_Guest_NeverContactsRemote(t *testing.T) {
	backend := &mockBackend{}
	f := newFixture(t, backend, true)
	ctx := context.Background()

	require.NoError(t, f.repo.CacheTrip(ctx, domain.Trip{ID: "local-abc", Name: "Guest Trip"}))

	got, found, err := f.controller.GetTrip(ctx, guest, "local-abc")

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Guest Trip", got.Name)
	assert.Zero(t, backend.calls)
}

// ---- drain serialization ---------------------------------------------------

// Overlapping OnReconnect calls must not double-apply queue items: only one
// drain runs, the overlap returns a zero result.
func TestOnReconnect_SerializesDrains(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var creates int
	backend := &mockBackend{
		createTrip: func(_ context.Context, trip domain.Trip) (domain.Trip, error) {
			creates++
			close(started)
			<-release
			return trip, nil
		},
	}
	f := newFixture(t, backend, true)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{
		Trip: domain.Trip{ID: "local-1", Name: "Desert Loop"},
	}))

	done := make(chan syncer.Result, 1)
	go func() {
		res, _ := f.controller.OnReconnect(ctx)
		done <- res
	}()

	<-started
	// The first drain is blocked inside the backend; a second call must bail
	// out immediately with a zero result.
	res, err := f.controller.OnReconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncer.Result{}, res)

	close(release)
	first := <-done
	assert.Equal(t, syncer.Result{Processed: 1}, first)
	assert.Equal(t, 1, creates, "the queued item was applied exactly once")
}

// errors.Is sanity for wrapped controller errors.
func TestUpdateTrip_MissingID(t *testing.T) {
	f := newFixture(t, &mockBackend{}, true)

	_, err := f.controller.UpdateTrip(context.Background(), registered, domain.Trip{Name: "No ID"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
