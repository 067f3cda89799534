package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamline/roamline/internal/cache"
	"github.com/roamline/roamline/internal/domain"
)

func stop(id string, order int) domain.TripStop {
	return domain.TripStop{ID: id, TripID: "t1", StopOrder: order}
}

func TestNormalizeTrip_MovesSidecarIntoStops(t *testing.T) {
	trip := domain.Trip{
		ID:        "t1",
		TripStops: []domain.TripStop{stop("s2", 1), stop("s1", 0)},
	}

	got := cache.NormalizeTrip(trip)

	assert.Nil(t, got.TripStops, "sidecar must be cleared")
	require.Len(t, got.Stops, 2)
	assert.Equal(t, "s1", got.Stops[0].ID)
	assert.Equal(t, "s2", got.Stops[1].ID)
}

func TestNormalizeTrip_CanonicalStopsWin(t *testing.T) {
	canonical := stop("s1", 0)
	canonical.Notes = "canonical"
	stale := stop("s1", 5)
	stale.Notes = "stale sidecar copy"

	trip := domain.Trip{
		ID:        "t1",
		Stops:     []domain.TripStop{canonical},
		TripStops: []domain.TripStop{stale, stop("s2", 1)},
	}

	got := cache.NormalizeTrip(trip)

	require.Len(t, got.Stops, 2)
	assert.Equal(t, "canonical", got.Stops[0].Notes, "duplicate ids keep the canonical copy")
	assert.Equal(t, "s2", got.Stops[1].ID, "non-duplicate sidecar stops are merged in")
}

func TestNormalizeTrip_NilStopsBecomesEmpty(t *testing.T) {
	got := cache.NormalizeTrip(domain.Trip{ID: "t1"})

	assert.NotNil(t, got.Stops)
	assert.Empty(t, got.Stops)
}

func TestNormalizeTrip_SortsByStopOrder(t *testing.T) {
	trip := domain.Trip{
		ID:    "t1",
		Stops: []domain.TripStop{stop("c", 2), stop("a", 0), stop("b", 1)},
	}

	got := cache.NormalizeTrip(trip)

	require.Len(t, got.Stops, 3)
	for i, s := range got.Stops {
		assert.Equal(t, i, s.StopOrder)
	}
}

func TestNormalizeTrip_Idempotent(t *testing.T) {
	trip := domain.Trip{
		ID:        "t1",
		Stops:     []domain.TripStop{stop("s1", 1)},
		TripStops: []domain.TripStop{stop("s2", 0)},
	}

	once := cache.NormalizeTrip(trip)
	twice := cache.NormalizeTrip(once)

	assert.Equal(t, once, twice)
}
