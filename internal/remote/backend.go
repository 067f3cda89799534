// Package remote defines the capability interface the offline engine uses to
// talk to the system-of-record, plus an HTTP client implementation speaking
// the Roamline API's REST surface.
//
// The engine never depends on transport details — everything upstream of
// this package sees only the Backend interface.
package remote

import (
	"context"

	"github.com/roamline/roamline/internal/domain"
)

// Backend is the remote system-of-record for trips, stops, and resorts.
// Authentication and row-level authorization are its responsibility, not the
// engine's. Every operation takes a context so a caller-imposed deadline
// can bound an in-flight call.
//
// The operations the sync processor replays (CreateTrip, AddTripStop,
// UpdateStopOrder, the deletes) must be idempotent at the remote end or
// acceptable to duplicate: the engine's delivery posture is at-least-once.
type Backend interface {
	// CreateTrip creates a trip and returns the canonical server record,
	// including the server-assigned id.
	CreateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// UpdateTrip overwrites the mutable fields of an existing trip.
	UpdateTrip(ctx context.Context, id string, trip domain.Trip) (domain.Trip, error)

	// DeleteTrip removes a trip and all of its stops.
	DeleteTrip(ctx context.Context, id string) error

	// AddTripStop appends a stop to a trip and returns the canonical record.
	AddTripStop(ctx context.Context, tripID string, stop domain.TripStop) (domain.TripStop, error)

	// UpdateTripStop overwrites the mutable fields of an existing stop.
	// The stop must carry its TripID.
	UpdateTripStop(ctx context.Context, id string, stop domain.TripStop) (domain.TripStop, error)

	// DeleteTripStop removes a stop from a trip.
	DeleteTripStop(ctx context.Context, tripID, stopID string) error

	// UpdateStopOrder upserts a single stop's position within its trip.
	// Replaying the same order is a no-op on the server.
	UpdateStopOrder(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error)

	// GetTripByID returns the trip with its full stop list.
	GetTripByID(ctx context.Context, id string) (domain.Trip, error)
}
