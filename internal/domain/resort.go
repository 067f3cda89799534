package domain

import "time"

// Resort is a place a stop can reference (campground, RV park, hotel).
// Resorts are immutable from the client's perspective: the engine caches them
// opportunistically as they are discovered and never mutates them locally,
// so a cached copy can always be replaced by a fresh remote fetch.
type Resort struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Address   string         `json:"address,omitempty"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Rating    float64        `json:"rating,omitempty"`
	Amenities map[string]any `json:"amenities,omitempty"`
	Phone     string         `json:"phone,omitempty"`
	Website   string         `json:"website,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}
