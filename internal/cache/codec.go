package cache

import "github.com/roamline/roamline/internal/domain"

// NormalizeTrip collapses a trip into its canonical in-memory shape.
// It is pure and stateless, and is applied on every read and write path so
// the two historical representations of a trip's stop list can never coexist
// past this boundary:
//
//   - Stops carried under the remote-shaped TripStops sidecar ("trip_stops"
//     in JSON, produced by the backend's nested-query responses) are moved
//     into the canonical Stops field and the sidecar is cleared.
//   - Stops is guaranteed non-nil, so callers can always range over it.
//   - Stops are ordered ascending by StopOrder.
//
// When both fields carry stops, canonical Stops wins and sidecar entries are
// merged in only if their id is not already present.
func NormalizeTrip(t domain.Trip) domain.Trip {
	if len(t.TripStops) > 0 {
		if t.Stops == nil {
			t.Stops = make([]domain.TripStop, 0, len(t.TripStops))
		}
		seen := make(map[string]bool, len(t.Stops))
		for _, s := range t.Stops {
			seen[s.ID] = true
		}
		for _, s := range t.TripStops {
			if !seen[s.ID] {
				t.Stops = append(t.Stops, s)
			}
		}
	}
	t.TripStops = nil

	if t.Stops == nil {
		t.Stops = []domain.TripStop{}
	}
	t.SortStops()
	return t
}
