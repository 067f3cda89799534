// Package domain contains the core data types for the Roamline trip planner.
// This package has zero dependencies on other internal packages and is
// imported by every other one (cache, queue, syncer, session, repo, service,
// handler, remote).
package domain

import (
	"fmt"
	"sort"
	"time"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	StatusDraft      TripStatus = "draft"
	StatusPlanned    TripStatus = "planned"
	StatusInProgress TripStatus = "in_progress"
	StatusCompleted  TripStatus = "completed"
	StatusCancelled  TripStatus = "cancelled"
)

// ValidStatus reports whether s is one of the five recognised trip states.
func ValidStatus(s TripStatus) bool {
	switch s {
	case StatusDraft, StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Location is an address plus coordinates. Used for a trip's start and end.
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Trip represents a single multi-stop road trip.
// A trip is the top-level aggregate; stops belong to a trip.
//
// Stops is the canonical stop list. TripStops exists only because the remote
// API's nested-query responses carry stops under "trip_stops"; the cache
// codec collapses it into Stops at the ingestion boundary and no code past
// that boundary may read or write it.
type Trip struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	StartLocation Location   `json:"start_location"`
	EndLocation   Location   `json:"end_location"`
	Status        TripStatus `json:"status"`
	Stops         []TripStop `json:"stops"`
	TripStops     []TripStop `json:"trip_stops,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SortStops orders the trip's stops ascending by StopOrder, in place.
func (t *Trip) SortStops() {
	sort.SliceStable(t.Stops, func(i, j int) bool {
		return t.Stops[i].StopOrder < t.Stops[j].StopOrder
	})
}

// Validate enforces business rules common to create and update.
func (t Trip) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if t.Status != "" && !ValidStatus(t.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, t.Status)
	}
	return nil
}
