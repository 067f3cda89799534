// Package service contains the business logic for the Roamline API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here — services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"

	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/repo"
)

// TripService implements business logic for Trip operations.
// It holds the stops repo as well because fetching a trip for a sync client
// means fetching it with its full stop list attached.
type TripService struct {
	trips repo.TripRepo
	stops repo.StopRepo
}

// NewTripService constructs a TripService backed by the provided repos.
func NewTripService(trips repo.TripRepo, stops repo.StopRepo) *TripService {
	return &TripService{trips: trips, stops: stops}
}

// Create validates and persists a new trip for the given user.
// Returns domain.ErrValidation if input violates business rules.
func (s *TripService) Create(ctx context.Context, userID string, trip domain.Trip) (domain.Trip, error) {
	trip.UserID = userID
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, err
	}
	result, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	return result, nil
}

// GetWithStops returns a single trip with its full stop list attached under
// the trip_stops field. Offline clients normalize that shape on ingestion.
// Returns domain.ErrNotFound if the trip does not exist or belongs to
// another user.
func (s *TripService) GetWithStops(ctx context.Context, userID, id string) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetWithStops: %w", err)
	}
	if trip.UserID != userID {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetWithStops: %w", domain.ErrNotFound)
	}

	stops, err := s.stops.ListByTripID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetWithStops: %w", err)
	}
	if stops == nil {
		stops = []domain.TripStop{}
	}
	trip.TripStops = stops
	return trip, nil
}

// ListByUser returns one page of the user's trips plus the total count.
func (s *TripService) ListByUser(ctx context.Context, userID string, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, total, err := s.trips.ListByUser(ctx, userID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.ListByUser: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, total, nil
}

// Update validates and persists changes to an existing trip.
// Returns domain.ErrNotFound if the trip does not exist or belongs to
// another user.
func (s *TripService) Update(ctx context.Context, userID string, trip domain.Trip) (domain.Trip, error) {
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, err
	}
	if err := s.authorize(ctx, userID, trip.ID); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	result, err := s.trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return result, nil
}

// Delete removes a trip by ID; its stops cascade.
func (s *TripService) Delete(ctx context.Context, userID, id string) error {
	if err := s.authorize(ctx, userID, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// authorize loads the trip and checks ownership. Someone else's trip is
// reported as ErrNotFound, not as a distinct authorization error, so ids
// cannot be probed.
func (s *TripService) authorize(ctx context.Context, userID, tripID string) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.UserID != userID {
		return domain.ErrNotFound
	}
	return nil
}
