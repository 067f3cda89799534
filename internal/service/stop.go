package service

import (
	"context"
	"fmt"

	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/repo"
)

// StopService implements business logic for TripStop operations.
// It holds the trips repo as well because every stop operation must verify
// the parent trip exists and belongs to the acting user.
type StopService struct {
	trips repo.TripRepo
	stops repo.StopRepo
}

// NewStopService constructs a StopService backed by the provided repos.
func NewStopService(trips repo.TripRepo, stops repo.StopRepo) *StopService {
	return &StopService{trips: trips, stops: stops}
}

// Create validates the stop, verifies the parent trip, then persists.
// Returns domain.ErrValidation if input violates business rules.
// Returns domain.ErrNotFound if the parent trip does not exist or belongs
// to another user.
func (s *StopService) Create(ctx context.Context, userID string, stop domain.TripStop) (domain.TripStop, error) {
	if err := stop.Validate(); err != nil {
		return domain.TripStop{}, err
	}
	if err := s.authorizeTrip(ctx, userID, stop.TripID); err != nil {
		return domain.TripStop{}, fmt.Errorf("service.StopService.Create: %w", err)
	}
	result, err := s.stops.Create(ctx, stop)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("service.StopService.Create: %w", err)
	}
	return result, nil
}

// ListByTripID returns all stops for a trip ordered by stop_order ascending.
// Always returns a non-nil slice so callers can safely range over it.
func (s *StopService) ListByTripID(ctx context.Context, userID, tripID string) ([]domain.TripStop, error) {
	if err := s.authorizeTrip(ctx, userID, tripID); err != nil {
		return nil, fmt.Errorf("service.StopService.ListByTripID: %w", err)
	}
	stops, err := s.stops.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.StopService.ListByTripID: %w", err)
	}
	if stops == nil {
		return []domain.TripStop{}, nil
	}
	return stops, nil
}

// Update validates and persists changes to an existing stop.
func (s *StopService) Update(ctx context.Context, userID string, stop domain.TripStop) (domain.TripStop, error) {
	if err := stop.Validate(); err != nil {
		return domain.TripStop{}, err
	}
	if err := s.authorizeTrip(ctx, userID, stop.TripID); err != nil {
		return domain.TripStop{}, fmt.Errorf("service.StopService.Update: %w", err)
	}
	result, err := s.stops.Update(ctx, stop)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("service.StopService.Update: %w", err)
	}
	return result, nil
}

// UpdateOrder sets a single stop's position within its trip. Idempotent:
// re-applying an order the stop already holds changes nothing, so sync
// clients may replay reorders freely.
func (s *StopService) UpdateOrder(ctx context.Context, userID, tripID, stopID string, order int) (domain.TripStop, error) {
	if order < 0 {
		return domain.TripStop{}, fmt.Errorf("%w: stop_order must not be negative", domain.ErrValidation)
	}
	if err := s.authorizeTrip(ctx, userID, tripID); err != nil {
		return domain.TripStop{}, fmt.Errorf("service.StopService.UpdateOrder: %w", err)
	}
	result, err := s.stops.UpdateOrder(ctx, tripID, stopID, order)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("service.StopService.UpdateOrder: %w", err)
	}
	return result, nil
}

// Delete removes a stop by ID, scoped to the given trip.
func (s *StopService) Delete(ctx context.Context, userID, tripID, stopID string) error {
	if err := s.authorizeTrip(ctx, userID, tripID); err != nil {
		return fmt.Errorf("service.StopService.Delete: %w", err)
	}
	if err := s.stops.Delete(ctx, tripID, stopID); err != nil {
		return fmt.Errorf("service.StopService.Delete: %w", err)
	}
	return nil
}

// authorizeTrip verifies the trip exists and belongs to userID.
func (s *StopService) authorizeTrip(ctx context.Context, userID, tripID string) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.UserID != userID {
		return domain.ErrNotFound
	}
	return nil
}
