package service_test

import (
	"context"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/repo"
)

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field — set only the ones your test needs.
// This is idiomatic Go: no mock generation library required for simple cases.
type mockTripRepo struct {
	create     func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID    func(ctx context.Context, id string) (domain.Trip, error)
	listByUser func(ctx context.Context, userID string, p domain.PaginationParams) ([]domain.Trip, int64, error)
	update     func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete     func(ctx context.Context, id string) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) ListByUser(ctx context.Context, userID string, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.listByUser(ctx, userID, p)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTripRepo must satisfy repo.TripRepo.
var _ repo.TripRepo = (*mockTripRepo)(nil)

// mockStopRepo is a hand-written test double for repo.StopRepo.
type mockStopRepo struct {
	create       func(ctx context.Context, stop domain.TripStop) (domain.TripStop, error)
	getByID      func(ctx context.Context, tripID, stopID string) (domain.TripStop, error)
	listByTripID func(ctx context.Context, tripID string) ([]domain.TripStop, error)
	update       func(ctx context.Context, stop domain.TripStop) (domain.TripStop, error)
	updateOrder  func(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error)
	delete       func(ctx context.Context, tripID, stopID string) error
}

func (m *mockStopRepo) Create(ctx context.Context, stop domain.TripStop) (domain.TripStop, error) {
	return m.create(ctx, stop)
}
func (m *mockStopRepo) GetByID(ctx context.Context, tripID, stopID string) (domain.TripStop, error) {
	return m.getByID(ctx, tripID, stopID)
}
func (m *mockStopRepo) ListByTripID(ctx context.Context, tripID string) ([]domain.TripStop, error) {
	return m.listByTripID(ctx, tripID)
}
func (m *mockStopRepo) Update(ctx context.Context, stop domain.TripStop) (domain.TripStop, error) {
	return m.update(ctx, stop)
}
func (m *mockStopRepo) UpdateOrder(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error) {
	return m.updateOrder(ctx, tripID, stopID, order)
}
func (m *mockStopRepo) Delete(ctx context.Context, tripID, stopID string) error {
	return m.delete(ctx, tripID, stopID)
}

var _ repo.StopRepo = (*mockStopRepo)(nil)

// mockResortRepo is a hand-written test double for repo.ResortRepo.
type mockResortRepo struct {
	upsert  func(ctx context.Context, resort domain.Resort) (domain.Resort, error)
	getByID func(ctx context.Context, id string) (domain.Resort, error)
}

func (m *mockResortRepo) Upsert(ctx context.Context, resort domain.Resort) (domain.Resort, error) {
	return m.upsert(ctx, resort)
}
func (m *mockResortRepo) GetByID(ctx context.Context, id string) (domain.Resort, error) {
	return m.getByID(ctx, id)
}

var _ repo.ResortRepo = (*mockResortRepo)(nil)

// ---- shared fixtures -------------------------------------------------------

const (
	ownerID = "user-1"
	tripID  = "7ad0d2cc-9a5b-4f7e-8f6c-0a1b2c3d4e5f"
	stopID  = "1b9e7c3a-2d4f-4e6a-8b0c-9d8e7f6a5b4c"
)

func validTrip() domain.Trip {
	return domain.Trip{
		ID:     tripID,
		UserID: ownerID,
		Name:   "Desert Loop",
		Status: domain.StatusPlanned,
	}
}

func validStop() domain.TripStop {
	return domain.TripStop{
		ID:        stopID,
		TripID:    tripID,
		StopOrder: 0,
		CheckIn:   openapi_types.Date{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		CheckOut:  openapi_types.Date{Time: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
}

// owningTripRepo returns a trip repo whose GetByID always finds a trip owned
// by ownerID — the common case for ownership-check tests.
func owningTripRepo() *mockTripRepo {
	return &mockTripRepo{
		getByID: func(_ context.Context, id string) (domain.Trip, error) {
			t := validTrip()
			t.ID = id
			return t, nil
		},
	}
}
