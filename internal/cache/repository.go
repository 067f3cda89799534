package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roamline/roamline/internal/domain"
)

// Key prefixes for cached entities. A key is always "{kind}_{id}" so a
// prefix scan over the store enumerates every entity of one kind.
const (
	tripKeyPrefix   = "trip_"
	stopKeyPrefix   = "stop_"
	resortKeyPrefix = "resort_"
	regionKeyPrefix = "region_"
)

// TripKey returns the store key for a trip id.
func TripKey(id string) string { return tripKeyPrefix + id }

// StopKey returns the store key for a stop id.
func StopKey(id string) string { return stopKeyPrefix + id }

// ResortKey returns the store key for a resort id.
func ResortKey(id string) string { return resortKeyPrefix + id }

// TripRepository stores and retrieves Trip, TripStop, and Resort aggregates
// on top of a Store.
//
// A trip is written through two paths that are not transactional with each
// other: the full trip snapshot under trip_{id}, and each stop individually
// under stop_{id}. The snapshot and the individual records are written by
// different code paths at different times (a partial sync can refresh one
// stop without refreshing its trip), so reads repair divergence instead of
// assuming it cannot happen — see GetCachedTrip's stop reconciliation.
//
// All methods surface storage errors to the caller; none retry internally.
// Retry is the sync processor's responsibility, not the cache's.
type TripRepository struct {
	store Store
}

// NewTripRepository constructs a TripRepository backed by the given store.
func NewTripRepository(store Store) *TripRepository {
	return &TripRepository{store: store}
}

// CacheTrip normalizes the trip, persists each of its stops under its own
// stop key, then persists the full trip snapshot. Persisting stops
// individually lets a stop be found and updated even when the owning trip's
// cached snapshot is stale.
func (r *TripRepository) CacheTrip(ctx context.Context, trip domain.Trip) error {
	trip = NormalizeTrip(trip)

	for _, stop := range trip.Stops {
		if err := r.store.Put(ctx, StopKey(stop.ID), stop); err != nil {
			return fmt.Errorf("cache.TripRepository.CacheTrip: stop %s: %w", stop.ID, err)
		}
	}

	if err := r.store.Put(ctx, TripKey(trip.ID), trip); err != nil {
		return fmt.Errorf("cache.TripRepository.CacheTrip: %w", err)
	}
	return nil
}

// CacheStop persists a single stop under its own key and, when the owning
// trip's snapshot is cached, patches the snapshot's stop list in place.
func (r *TripRepository) CacheStop(ctx context.Context, stop domain.TripStop) error {
	if err := r.store.Put(ctx, StopKey(stop.ID), stop); err != nil {
		return fmt.Errorf("cache.TripRepository.CacheStop: %w", err)
	}

	var trip domain.Trip
	found, err := r.store.Get(ctx, TripKey(stop.TripID), &trip)
	if err != nil {
		return fmt.Errorf("cache.TripRepository.CacheStop: load trip: %w", err)
	}
	if !found {
		return nil
	}

	trip = NormalizeTrip(trip)
	replaced := false
	for i, s := range trip.Stops {
		if s.ID == stop.ID {
			trip.Stops[i] = stop
			replaced = true
			break
		}
	}
	if !replaced {
		trip.Stops = append(trip.Stops, stop)
	}
	trip.SortStops()

	if err := r.store.Put(ctx, TripKey(trip.ID), trip); err != nil {
		return fmt.Errorf("cache.TripRepository.CacheStop: update trip: %w", err)
	}
	return nil
}

// RemoveStop deletes an individually-cached stop and drops it from the
// owning trip's snapshot when that snapshot is cached.
func (r *TripRepository) RemoveStop(ctx context.Context, tripID, stopID string) error {
	if err := r.store.Remove(ctx, StopKey(stopID)); err != nil {
		return fmt.Errorf("cache.TripRepository.RemoveStop: %w", err)
	}

	var trip domain.Trip
	found, err := r.store.Get(ctx, TripKey(tripID), &trip)
	if err != nil {
		return fmt.Errorf("cache.TripRepository.RemoveStop: load trip: %w", err)
	}
	if !found {
		return nil
	}

	trip = NormalizeTrip(trip)
	kept := trip.Stops[:0]
	for _, s := range trip.Stops {
		if s.ID != stopID {
			kept = append(kept, s)
		}
	}
	trip.Stops = kept

	if err := r.store.Put(ctx, TripKey(trip.ID), trip); err != nil {
		return fmt.Errorf("cache.TripRepository.RemoveStop: update trip: %w", err)
	}
	return nil
}

// GetCachedTrip loads the trip snapshot and performs stop reconciliation:
// every individually-cached stop whose TripID matches but whose id is not in
// the snapshot's stop list is merged in, then stops are sorted by StopOrder.
// This recovers stops cached by an earlier partial sync that never made it
// back into a refreshed snapshot.
//
// Returns (zero, false, nil) when the trip is not cached.
func (r *TripRepository) GetCachedTrip(ctx context.Context, id string) (domain.Trip, bool, error) {
	var trip domain.Trip
	found, err := r.store.Get(ctx, TripKey(id), &trip)
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("cache.TripRepository.GetCachedTrip: %w", err)
	}
	if !found {
		return domain.Trip{}, false, nil
	}
	trip = NormalizeTrip(trip)

	stopKeys, err := r.store.KeysWithPrefix(ctx, stopKeyPrefix)
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("cache.TripRepository.GetCachedTrip: scan stops: %w", err)
	}

	raws, err := r.store.MultiGet(ctx, stopKeys)
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("cache.TripRepository.GetCachedTrip: load stops: %w", err)
	}

	present := make(map[string]bool, len(trip.Stops))
	for _, s := range trip.Stops {
		present[s.ID] = true
	}

	for key, raw := range raws {
		var stop domain.TripStop
		if err := json.Unmarshal(raw, &stop); err != nil {
			return domain.Trip{}, false, fmt.Errorf("cache.TripRepository.GetCachedTrip: decode %s: %w: %v", key, domain.ErrStorage, err)
		}
		if stop.TripID != trip.ID || present[stop.ID] {
			continue
		}
		trip.Stops = append(trip.Stops, stop)
		present[stop.ID] = true
	}

	trip.SortStops()
	return trip, true, nil
}

// GetCachedTrips prefix-scans all trip snapshots and decodes each one.
// Every returned trip carries a non-nil, order-sorted stop list, but no
// cross-trip stop reconciliation is performed — doing the full stop scan for
// every trip in bulk costs too much, and single-trip reads repair divergence
// anyway. Deliberate relaxation relative to GetCachedTrip.
func (r *TripRepository) GetCachedTrips(ctx context.Context) ([]domain.Trip, error) {
	keys, err := r.store.KeysWithPrefix(ctx, tripKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("cache.TripRepository.GetCachedTrips: %w", err)
	}

	raws, err := r.store.MultiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("cache.TripRepository.GetCachedTrips: %w", err)
	}

	trips := make([]domain.Trip, 0, len(raws))
	for key, raw := range raws {
		var trip domain.Trip
		if err := json.Unmarshal(raw, &trip); err != nil {
			return nil, fmt.Errorf("cache.TripRepository.GetCachedTrips: decode %s: %w: %v", key, domain.ErrStorage, err)
		}
		trips = append(trips, NormalizeTrip(trip))
	}
	return trips, nil
}

// RemoveTrip deletes the trip snapshot, every individually-cached stop owned
// by the trip, and every resort those stops referenced. Resorts are removed
// regardless of whether another trip references them: resort records are
// re-cacheable from the remote on demand, so over-removal is acceptable and
// cheaper than reference counting.
func (r *TripRepository) RemoveTrip(ctx context.Context, id string) error {
	trip, found, err := r.GetCachedTrip(ctx, id)
	if err != nil {
		return fmt.Errorf("cache.TripRepository.RemoveTrip: %w", err)
	}

	if found {
		for _, stop := range trip.Stops {
			if err := r.store.Remove(ctx, StopKey(stop.ID)); err != nil {
				return fmt.Errorf("cache.TripRepository.RemoveTrip: stop %s: %w", stop.ID, err)
			}
			if stop.ResortID == "" {
				continue
			}
			if err := r.store.Remove(ctx, ResortKey(stop.ResortID)); err != nil {
				return fmt.Errorf("cache.TripRepository.RemoveTrip: resort %s: %w", stop.ResortID, err)
			}
		}
	}

	if err := r.store.Remove(ctx, TripKey(id)); err != nil {
		return fmt.Errorf("cache.TripRepository.RemoveTrip: %w", err)
	}
	return nil
}

// CacheResort persists a resort under its resort key. Pass-through to the
// store; resorts for a trip are discovered by following stop.ResortID
// references, never stored as a denormalized list on the trip.
func (r *TripRepository) CacheResort(ctx context.Context, resort domain.Resort) error {
	if err := r.store.Put(ctx, ResortKey(resort.ID), resort); err != nil {
		return fmt.Errorf("cache.TripRepository.CacheResort: %w", err)
	}
	return nil
}

// GetCachedResort loads a resort by id.
// Returns (zero, false, nil) when the resort is not cached.
func (r *TripRepository) GetCachedResort(ctx context.Context, id string) (domain.Resort, bool, error) {
	var resort domain.Resort
	found, err := r.store.Get(ctx, ResortKey(id), &resort)
	if err != nil {
		return domain.Resort{}, false, fmt.Errorf("cache.TripRepository.GetCachedResort: %w", err)
	}
	return resort, found, nil
}

// regionKey builds the store key for a requested map region.
func regionKey(zoom, x, y int) string {
	return fmt.Sprintf("%s%d_%d_%d", regionKeyPrefix, zoom, x, y)
}

// MarkRegionRequested records that a map region at the given zoom was
// requested. Only the fact of the request is tracked — no imagery is stored.
func (r *TripRepository) MarkRegionRequested(ctx context.Context, zoom, x, y int) error {
	if err := r.store.Put(ctx, regionKey(zoom, x, y), true); err != nil {
		return fmt.Errorf("cache.TripRepository.MarkRegionRequested: %w", err)
	}
	return nil
}

// IsRegionRequested reports whether the map region was previously requested.
func (r *TripRepository) IsRegionRequested(ctx context.Context, zoom, x, y int) (bool, error) {
	var marked bool
	found, err := r.store.Get(ctx, regionKey(zoom, x, y), &marked)
	if err != nil {
		return false, fmt.Errorf("cache.TripRepository.IsRegionRequested: %w", err)
	}
	return found && marked, nil
}

// EntityID extracts the id portion from a "{kind}_{id}" store key.
// Returns "" when the key does not carry the expected prefix.
func EntityID(key, prefix string) string {
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	return key[len(prefix):]
}
