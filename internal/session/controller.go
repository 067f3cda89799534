// Package session is the orchestration layer consumed by the UI. Every
// user-facing trip/stop mutation goes through the Controller, which performs
// write-local-then-best-effort-remote, routes guests away from the network,
// and triggers a queue drain when connectivity returns.
//
// The decision table, applied uniformly by dispatch:
//
//	online  + registered → write cache, then write remote synchronously;
//	                       on success re-cache the canonical server record;
//	                       on failure leave the local write standing and
//	                       surface the error (no auto-queue — only offline
//	                       writes are queued)
//	online  + guest      → write cache only; never contacts the remote
//	offline + registered → write cache, enqueue the mutation for later sync
//	offline + guest      → write cache only; guest data never syncs
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roamline/roamline/internal/cache"
	"github.com/roamline/roamline/internal/connectivity"
	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/queue"
	"github.com/roamline/roamline/internal/remote"
	"github.com/roamline/roamline/internal/syncer"
)

// Actor identifies who is performing a mutation.
type Actor struct {
	// UserID is the authenticated user id; empty for guests.
	UserID string
	// Guest is true for anonymous sessions. Guest writes stay local forever.
	Guest bool
}

// Controller orchestrates the cache, the mutation queue, the connectivity
// gate, and the remote backend for a single active session. The engine
// assumes one active session per device and takes no optimistic-concurrency
// version checks.
type Controller struct {
	gate      connectivity.Gate
	repo      *cache.TripRepository
	queue     *queue.Queue
	backend   remote.Backend
	processor *syncer.Processor
	logger    *slog.Logger

	// draining serializes OnReconnect: the processor does not guard against
	// overlapping drains internally, so the controller must.
	draining atomic.Bool
}

// New constructs a Controller. If logger is nil, slog.Default() is used.
// Construct one per composition root and pass it by reference — no package
// holds a process-wide instance.
func New(gate connectivity.Gate, repo *cache.TripRepository, q *queue.Queue, backend remote.Backend, processor *syncer.Processor, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		gate:      gate,
		repo:      repo,
		queue:     q,
		backend:   backend,
		processor: processor,
		logger:    logger,
	}
}

// dispatch applies the decision table to a mutation whose local write has
// already happened. remoteOp performs the synchronous remote write (plus
// canonical re-cache); enqueueOp records the mutation for a later drain.
// Either may be nil when the mutation has no remote counterpart.
func (c *Controller) dispatch(ctx context.Context, actor Actor, remoteOp, enqueueOp func(context.Context) error) error {
	if actor.Guest {
		return nil
	}
	if c.gate.IsConnected(ctx) {
		if remoteOp == nil {
			return nil
		}
		return remoteOp(ctx)
	}
	if enqueueOp == nil {
		return nil
	}
	return enqueueOp(ctx)
}

// CreateTrip creates a trip locally and best-effort remotely. The returned
// trip carries the server-assigned id when the synchronous remote write
// succeeded, and a provisional id otherwise.
func (c *Controller) CreateTrip(ctx context.Context, actor Actor, trip domain.Trip) (domain.Trip, error) {
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, fmt.Errorf("session.Controller.CreateTrip: %w", err)
	}

	if trip.ID == "" {
		trip.ID = domain.NewProvisionalID()
	}
	trip.UserID = actor.UserID

	if err := c.repo.CacheTrip(ctx, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("session.Controller.CreateTrip: %w", err)
	}

	result := trip
	err := c.dispatch(ctx, actor,
		func(ctx context.Context) error {
			created, err := c.backend.CreateTrip(ctx, trip)
			if err != nil {
				return err
			}
			if created.ID != trip.ID {
				if err := c.repo.RemoveTrip(ctx, trip.ID); err != nil {
					return err
				}
			}
			if err := c.repo.CacheTrip(ctx, created); err != nil {
				return err
			}
			result = cache.NormalizeTrip(created)
			return nil
		},
		func(ctx context.Context) error {
			return c.queue.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{Trip: trip})
		},
	)
	if err != nil {
		return result, fmt.Errorf("session.Controller.CreateTrip: %w", err)
	}
	return result, nil
}

// UpdateTrip overwrites a trip's fields locally and best-effort remotely.
// An offline update is queued as a trip mutation — the remote create is an
// upsert by id, so replaying an update as a create converges on the same
// record.
func (c *Controller) UpdateTrip(ctx context.Context, actor Actor, trip domain.Trip) (domain.Trip, error) {
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, fmt.Errorf("session.Controller.UpdateTrip: %w", err)
	}
	if trip.ID == "" {
		return domain.Trip{}, fmt.Errorf("session.Controller.UpdateTrip: %w: trip id is required", domain.ErrValidation)
	}

	if err := c.repo.CacheTrip(ctx, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("session.Controller.UpdateTrip: %w", err)
	}

	result := cache.NormalizeTrip(trip)
	err := c.dispatch(ctx, actor,
		func(ctx context.Context) error {
			updated, err := c.backend.UpdateTrip(ctx, trip.ID, trip)
			if err != nil {
				return err
			}
			if err := c.repo.CacheTrip(ctx, updated); err != nil {
				return err
			}
			result = cache.NormalizeTrip(updated)
			return nil
		},
		func(ctx context.Context) error {
			return c.queue.Enqueue(ctx, queue.ActionTrip, queue.TripPayload{Trip: trip})
		},
	)
	if err != nil {
		return result, fmt.Errorf("session.Controller.UpdateTrip: %w", err)
	}
	return result, nil
}

// DeleteTrip removes the trip from the cache immediately (optimistic) and
// deletes it remotely now or on the next drain. Deleting a trip that never
// reached the server (provisional id) queues no remote delete; instead any
// mutations already queued against the trip are dropped, so the next drain
// cannot recreate what the user just removed.
func (c *Controller) DeleteTrip(ctx context.Context, actor Actor, id string) error {
	if err := c.repo.RemoveTrip(ctx, id); err != nil {
		return fmt.Errorf("session.Controller.DeleteTrip: %w", err)
	}

	if domain.IsProvisionalID(id) {
		if err := c.queue.DropEntity(ctx, id); err != nil {
			return fmt.Errorf("session.Controller.DeleteTrip: %w", err)
		}
		return nil
	}

	err := c.dispatch(ctx, actor,
		func(ctx context.Context) error {
			return c.backend.DeleteTrip(ctx, id)
		},
		func(ctx context.Context) error {
			return c.queue.Enqueue(ctx, queue.ActionDelete, queue.DeletePayload{Entity: queue.EntityTrip, ID: id})
		},
	)
	if err != nil {
		return fmt.Errorf("session.Controller.DeleteTrip: %w", err)
	}
	return nil
}

// AddStop appends a stop to a trip locally and best-effort remotely.
func (c *Controller) AddStop(ctx context.Context, actor Actor, stop domain.TripStop) (domain.TripStop, error) {
	if err := stop.Validate(); err != nil {
		return domain.TripStop{}, fmt.Errorf("session.Controller.AddStop: %w", err)
	}

	if stop.ID == "" {
		stop.ID = domain.NewProvisionalID()
	}

	if err := c.repo.CacheStop(ctx, stop); err != nil {
		return domain.TripStop{}, fmt.Errorf("session.Controller.AddStop: %w", err)
	}

	result := stop
	err := c.dispatch(ctx, actor,
		func(ctx context.Context) error {
			created, err := c.backend.AddTripStop(ctx, stop.TripID, stop)
			if err != nil {
				return err
			}
			if created.ID != stop.ID {
				if err := c.repo.RemoveStop(ctx, stop.TripID, stop.ID); err != nil {
					return err
				}
			}
			if err := c.repo.CacheStop(ctx, created); err != nil {
				return err
			}
			result = created
			return nil
		},
		func(ctx context.Context) error {
			return c.queue.Enqueue(ctx, queue.ActionStop, queue.StopPayload{Stop: stop})
		},
	)
	if err != nil {
		return result, fmt.Errorf("session.Controller.AddStop: %w", err)
	}
	return result, nil
}

// UpdateStop overwrites a stop's fields locally and best-effort remotely.
// Offline updates are queued as stop mutations; the remote add-stop upserts
// by id, so the replay converges.
func (c *Controller) UpdateStop(ctx context.Context, actor Actor, stop domain.TripStop) (domain.TripStop, error) {
	if err := stop.Validate(); err != nil {
		return domain.TripStop{}, fmt.Errorf("session.Controller.UpdateStop: %w", err)
	}
	if stop.ID == "" {
		return domain.TripStop{}, fmt.Errorf("session.Controller.UpdateStop: %w: stop id is required", domain.ErrValidation)
	}

	if err := c.repo.CacheStop(ctx, stop); err != nil {
		return domain.TripStop{}, fmt.Errorf("session.Controller.UpdateStop: %w", err)
	}

	result := stop
	err := c.dispatch(ctx, actor,
		func(ctx context.Context) error {
			updated, err := c.backend.UpdateTripStop(ctx, stop.ID, stop)
			if err != nil {
				return err
			}
			if err := c.repo.CacheStop(ctx, updated); err != nil {
				return err
			}
			result = updated
			return nil
		},
		func(ctx context.Context) error {
			return c.queue.Enqueue(ctx, queue.ActionStop, queue.StopPayload{Stop: stop})
		},
	)
	if err != nil {
		return result, fmt.Errorf("session.Controller.UpdateStop: %w", err)
	}
	return result, nil
}

// DeleteStop removes a stop from the cache immediately and deletes it
// remotely now or on the next drain. A stop that never reached the server
// queues no remote delete; its queued create is dropped instead.
func (c *Controller) DeleteStop(ctx context.Context, actor Actor, tripID, stopID string) error {
	if err := c.repo.RemoveStop(ctx, tripID, stopID); err != nil {
		return fmt.Errorf("session.Controller.DeleteStop: %w", err)
	}

	if domain.IsProvisionalID(stopID) {
		if err := c.queue.DropEntity(ctx, stopID); err != nil {
			return fmt.Errorf("session.Controller.DeleteStop: %w", err)
		}
		return nil
	}

	err := c.dispatch(ctx, actor,
		func(ctx context.Context) error {
			return c.backend.DeleteTripStop(ctx, tripID, stopID)
		},
		func(ctx context.Context) error {
			return c.queue.Enqueue(ctx, queue.ActionDelete, queue.DeletePayload{Entity: queue.EntityStop, ID: stopID, TripID: tripID})
		},
	)
	if err != nil {
		return fmt.Errorf("session.Controller.DeleteStop: %w", err)
	}
	return nil
}

// ReorderStops assigns each listed stop its new order locally, then applies
// the orders remotely (one upsert per stop) or queues a single reorder
// mutation for the next drain.
func (c *Controller) ReorderStops(ctx context.Context, actor Actor, tripID string, orders []queue.StopOrder) error {
	trip, found, err := c.repo.GetCachedTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("session.Controller.ReorderStops: %w", err)
	}
	if !found {
		return fmt.Errorf("session.Controller.ReorderStops: %w", domain.ErrNotFound)
	}

	byID := make(map[string]int, len(orders))
	for _, o := range orders {
		byID[o.StopID] = o.StopOrder
	}
	for _, stop := range trip.Stops {
		order, ok := byID[stop.ID]
		if !ok || stop.StopOrder == order {
			continue
		}
		stop.StopOrder = order
		if err := c.repo.CacheStop(ctx, stop); err != nil {
			return fmt.Errorf("session.Controller.ReorderStops: %w", err)
		}
	}

	err = c.dispatch(ctx, actor,
		func(ctx context.Context) error {
			for _, o := range orders {
				updated, err := c.backend.UpdateStopOrder(ctx, tripID, o.StopID, o.StopOrder)
				if err != nil {
					return err
				}
				if err := c.repo.CacheStop(ctx, updated); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context) error {
			return c.queue.Enqueue(ctx, queue.ActionReorder, queue.ReorderPayload{TripID: tripID, Orders: orders})
		},
	)
	if err != nil {
		return fmt.Errorf("session.Controller.ReorderStops: %w", err)
	}
	return nil
}

// GetTrip returns a trip, cache-first. When online and registered it
// refreshes the cache from the remote source of truth first; a remote
// failure degrades to the cached copy rather than surfacing an error, so
// locally-written state stays visible at all times.
func (c *Controller) GetTrip(ctx context.Context, actor Actor, id string) (domain.Trip, bool, error) {
	if !actor.Guest && !domain.IsProvisionalID(id) && c.gate.IsConnected(ctx) {
		fresh, err := c.backend.GetTripByID(ctx, id)
		if err == nil {
			if err := c.repo.CacheTrip(ctx, fresh); err != nil {
				return domain.Trip{}, false, fmt.Errorf("session.Controller.GetTrip: %w", err)
			}
		} else {
			c.logger.Warn("remote trip refresh failed, serving cache", "trip_id", id, "error", err)
		}
	}

	trip, found, err := c.repo.GetCachedTrip(ctx, id)
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("session.Controller.GetTrip: %w", err)
	}
	return trip, found, nil
}

// ListTrips returns every cached trip. Purely local; the stop-presence
// guarantee of the cache repository applies.
func (c *Controller) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	trips, err := c.repo.GetCachedTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("session.Controller.ListTrips: %w", err)
	}
	return trips, nil
}

// OnReconnect drains the mutation queue once. Invoke it when connectivity
// is restored or the app is foregrounded. Drains are serialized: a call
// while another drain is in flight returns a zero Result immediately.
func (c *Controller) OnReconnect(ctx context.Context) (syncer.Result, error) {
	if !c.draining.CompareAndSwap(false, true) {
		return syncer.Result{}, nil
	}
	defer c.draining.Store(false)

	res, err := c.processor.ProcessQueue(ctx)
	if err != nil {
		return res, fmt.Errorf("session.Controller.OnReconnect: %w", err)
	}
	return res, nil
}
