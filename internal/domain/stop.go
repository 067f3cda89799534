package domain

import (
	"fmt"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// BookingInfo carries optional structured reservation details for a stop.
type BookingInfo struct {
	Confirmation string  `json:"confirmation,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Currency     string  `json:"currency,omitempty"`
}

// TripStop represents a single overnight stop on a trip.
// A stop is exclusively owned by its trip and is never persisted without a
// TripID. StopOrder is unique within a trip and defines the visit sequence.
// CheckIn and CheckOut are calendar dates (no time component).
type TripStop struct {
	ID        string             `json:"id"`
	TripID    string             `json:"trip_id"`
	ResortID  string             `json:"resort_id,omitempty"`
	StopOrder int                `json:"stop_order"`
	CheckIn   openapi_types.Date `json:"check_in"`
	CheckOut  openapi_types.Date `json:"check_out"`
	Notes     string             `json:"notes,omitempty"`
	Booking   *BookingInfo       `json:"booking,omitempty"`
}

// Validate enforces business rules common to create and update.
//   - TripID must be set (stops are never free-floating).
//   - CheckOut must not be before CheckIn.
func (s TripStop) Validate() error {
	if s.TripID == "" {
		return fmt.Errorf("%w: trip id is required", ErrValidation)
	}
	if s.CheckOut.Time.Before(s.CheckIn.Time) {
		return fmt.Errorf("%w: check_out must not be before check_in", ErrValidation)
	}
	return nil
}
