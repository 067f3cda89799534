package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/service"
)

// ---- Create tests ----------------------------------------------------------

func TestTripService_Create_Valid(t *testing.T) {
	trips := &mockTripRepo{
		create: func(_ context.Context, tr domain.Trip) (domain.Trip, error) { return tr, nil },
	}
	svc := service.NewTripService(trips, &mockStopRepo{})

	got, err := svc.Create(context.Background(), ownerID, validTrip())

	require.NoError(t, err)
	assert.Equal(t, "Desert Loop", got.Name)
	assert.Equal(t, ownerID, got.UserID, "service must stamp the acting user")
}

func TestTripService_Create_OverridesSuppliedUserID(t *testing.T) {
	trips := &mockTripRepo{
		create: func(_ context.Context, tr domain.Trip) (domain.Trip, error) { return tr, nil },
	}
	svc := service.NewTripService(trips, &mockStopRepo{})

	trip := validTrip()
	trip.UserID = "someone-else" // clients cannot create trips for other users

	got, err := svc.Create(context.Background(), ownerID, trip)

	require.NoError(t, err)
	assert.Equal(t, ownerID, got.UserID)
}

func TestTripService_Create_MissingName(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{}, &mockStopRepo{})

	trip := validTrip()
	trip.Name = ""

	_, err := svc.Create(context.Background(), ownerID, trip)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Create_UnknownStatus(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{}, &mockStopRepo{})

	trip := validTrip()
	trip.Status = "vacationing"

	_, err := svc.Create(context.Background(), ownerID, trip)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- GetWithStops tests ----------------------------------------------------

func TestTripService_GetWithStops_AttachesStops(t *testing.T) {
	stops := &mockStopRepo{
		listByTripID: func(_ context.Context, id string) ([]domain.TripStop, error) {
			s := validStop()
			s.TripID = id
			return []domain.TripStop{s}, nil
		},
	}
	svc := service.NewTripService(owningTripRepo(), stops)

	got, err := svc.GetWithStops(context.Background(), ownerID, tripID)

	require.NoError(t, err)
	require.Len(t, got.TripStops, 1)
	assert.Equal(t, tripID, got.TripStops[0].TripID)
}

func TestTripService_GetWithStops_NoStops_EmptySlice(t *testing.T) {
	stops := &mockStopRepo{
		listByTripID: func(_ context.Context, _ string) ([]domain.TripStop, error) {
			return nil, nil
		},
	}
	svc := service.NewTripService(owningTripRepo(), stops)

	got, err := svc.GetWithStops(context.Background(), ownerID, tripID)

	require.NoError(t, err)
	// Must serialize as [] rather than null for sync clients.
	assert.NotNil(t, got.TripStops)
	assert.Empty(t, got.TripStops)
}

func TestTripService_GetWithStops_OtherUsersTrip_NotFound(t *testing.T) {
	svc := service.NewTripService(owningTripRepo(), &mockStopRepo{})

	_, err := svc.GetWithStops(context.Background(), "intruder", tripID)

	// Someone else's trip is reported as not-found so ids cannot be probed.
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- ListByUser tests ------------------------------------------------------

func TestTripService_ListByUser_EmptyResult(t *testing.T) {
	trips := &mockTripRepo{
		listByUser: func(_ context.Context, _ string, _ domain.PaginationParams) ([]domain.Trip, int64, error) {
			return nil, 0, nil
		},
	}
	svc := service.NewTripService(trips, &mockStopRepo{})

	got, total, err := svc.ListByUser(context.Background(), ownerID, domain.PaginationParams{Page: 1, Limit: 20})

	require.NoError(t, err)
	assert.NotNil(t, got, "nil slice would serialize as JSON null")
	assert.Zero(t, total)
}

// ---- Update tests ----------------------------------------------------------

func TestTripService_Update_Valid(t *testing.T) {
	trips := owningTripRepo()
	trips.update = func(_ context.Context, tr domain.Trip) (domain.Trip, error) { return tr, nil }
	svc := service.NewTripService(trips, &mockStopRepo{})

	trip := validTrip()
	trip.Name = "Renamed"

	got, err := svc.Update(context.Background(), ownerID, trip)

	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestTripService_Update_OtherUsersTrip_NotFound(t *testing.T) {
	svc := service.NewTripService(owningTripRepo(), &mockStopRepo{})

	_, err := svc.Update(context.Background(), "intruder", validTrip())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripService_Update_RepoError_Wrapped(t *testing.T) {
	boom := errors.New("connection reset")
	trips := owningTripRepo()
	trips.update = func(_ context.Context, _ domain.Trip) (domain.Trip, error) {
		return domain.Trip{}, boom
	}
	svc := service.NewTripService(trips, &mockStopRepo{})

	_, err := svc.Update(context.Background(), ownerID, validTrip())

	assert.ErrorIs(t, err, boom, "repo errors must be wrapped, not swallowed")
}

// ---- Delete tests ----------------------------------------------------------

func TestTripService_Delete_Valid(t *testing.T) {
	var deleted string
	trips := owningTripRepo()
	trips.delete = func(_ context.Context, id string) error {
		deleted = id
		return nil
	}
	svc := service.NewTripService(trips, &mockStopRepo{})

	err := svc.Delete(context.Background(), ownerID, tripID)

	require.NoError(t, err)
	assert.Equal(t, tripID, deleted)
}

func TestTripService_Delete_OtherUsersTrip_NotFound(t *testing.T) {
	svc := service.NewTripService(owningTripRepo(), &mockStopRepo{})

	err := svc.Delete(context.Background(), "intruder", tripID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
