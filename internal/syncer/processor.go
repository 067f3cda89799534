// Package syncer drains the persisted mutation queue against the remote
// backend once connectivity is available.
//
// The drain is the one place in the engine where failures are deliberately
// swallowed and counted instead of propagated: a single item failing must
// not abort the rest of the pass. Individual failures are logged at Warn.
//
// Delivery posture is at-least-once. A partial failure retains the queue
// tail from the first failed item onward, so items that succeeded after an
// earlier failure are re-delivered on the next drain. That is acceptable
// because every replayed operation is idempotent at the remote end (create
// trip, upsert stop order, delete by id) or tolerable to duplicate.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roamline/roamline/internal/cache"
	"github.com/roamline/roamline/internal/connectivity"
	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/queue"
	"github.com/roamline/roamline/internal/remote"
)

// Result reports the outcome of one drain pass.
type Result struct {
	// Processed is the number of items successfully applied remotely.
	Processed int
	// Errors is the number of items that failed.
	Errors int
}

// Processor applies queued mutations to the remote backend.
//
// ProcessQueue is safe to invoke repeatedly: draining an empty queue is a
// no-op, and re-draining after a partial failure only resends operations the
// remote end tolerates. Overlapping drains are NOT guarded against here —
// the caller serializes invocations (the session controller uses an
// in-flight flag).
type Processor struct {
	gate    connectivity.Gate
	queue   *queue.Queue
	backend remote.Backend
	repo    *cache.TripRepository
	logger  *slog.Logger
}

// New constructs a Processor. If logger is nil, slog.Default() is used.
func New(gate connectivity.Gate, q *queue.Queue, backend remote.Backend, repo *cache.TripRepository, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{gate: gate, queue: q, backend: backend, repo: repo, logger: logger}
}

// ProcessQueue performs a single drain pass.
//
// Offline, or an empty queue, returns {0,0} immediately — no network call is
// ever attempted while unreachable. Otherwise items are applied strictly in
// enqueue order; each failure is logged and counted and the pass continues.
// With zero failures the queue is cleared; otherwise the tail starting at
// the first failed item is retained for the next drain.
//
// When a queued create is assigned a server id, every remaining queued
// reference to the provisional id is rewritten before the next item is
// applied, so a stop (or delete, or reorder) enqueued against a trip that
// was itself created offline reaches the server under the trip's real id.
//
// The returned error covers queue persistence only. Callers should refresh
// their view from the remote source of truth afterwards rather than
// trusting queued payloads as final state.
func (p *Processor) ProcessQueue(ctx context.Context) (Result, error) {
	if !p.gate.IsConnected(ctx) {
		return Result{}, nil
	}

	items, err := p.queue.PeekAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("syncer.Processor.ProcessQueue: %w", err)
	}
	if len(items) == 0 {
		return Result{}, nil
	}

	var res Result
	firstFailed := -1

	for i, item := range items {
		remap, err := p.apply(ctx, item)
		if err != nil {
			p.logger.Warn("sync item failed",
				"action", string(item.Action),
				"index", i,
				"enqueued_at", item.EnqueuedAt,
				"error", err,
			)
			res.Errors++
			if firstFailed == -1 {
				firstFailed = i
			}
			continue
		}
		res.Processed++

		// A remote create that assigned a server id invalidates every
		// queued reference to the provisional one. Rewrite both the
		// persisted queue (so a retained tail survives restarts with live
		// ids) and the in-memory tail of this pass.
		if remap.from != "" {
			if err := p.queue.RemapID(ctx, remap.from, remap.to); err != nil {
				return res, fmt.Errorf("syncer.Processor.ProcessQueue: %w", err)
			}
			for j := i + 1; j < len(items); j++ {
				items[j].Payload = queue.RemapPayloadID(items[j].Payload, remap.from, remap.to)
			}
		}
	}

	if res.Errors == 0 {
		if err := p.queue.Clear(ctx); err != nil {
			return res, fmt.Errorf("syncer.Processor.ProcessQueue: %w", err)
		}
		p.logger.Info("sync queue drained", "processed", res.Processed)
		return res, nil
	}

	if err := p.queue.Retain(ctx, firstFailed); err != nil {
		return res, fmt.Errorf("syncer.Processor.ProcessQueue: %w", err)
	}
	p.logger.Info("sync queue partially drained",
		"processed", res.Processed,
		"errors", res.Errors,
		"retained_from", firstFailed,
	)
	return res, nil
}

// idRemap records a provisional id superseded by a server-assigned one while
// applying a queued create. The zero value means no remap happened.
type idRemap struct {
	from string
	to   string
}

// apply dispatches one queued mutation to the matching remote operation and
// refreshes the cache with the canonical server record on success.
func (p *Processor) apply(ctx context.Context, item queue.Mutation) (idRemap, error) {
	switch payload := item.Payload.(type) {
	case queue.TripPayload:
		return p.applyTrip(ctx, payload)
	case queue.StopPayload:
		return p.applyStop(ctx, payload)
	case queue.DeletePayload:
		return idRemap{}, p.applyDelete(ctx, payload)
	case queue.ReorderPayload:
		return idRemap{}, p.applyReorder(ctx, payload)
	default:
		return idRemap{}, fmt.Errorf("unsupported mutation action %q", item.Action)
	}
}

func (p *Processor) applyTrip(ctx context.Context, payload queue.TripPayload) (idRemap, error) {
	provisionalID := payload.Trip.ID

	created, err := p.backend.CreateTrip(ctx, payload.Trip)
	if err != nil {
		return idRemap{}, err
	}

	if provisionalID == "" || provisionalID == created.ID {
		return idRemap{}, p.repo.CacheTrip(ctx, created)
	}

	// The provisional snapshot is superseded by the canonical server record.
	// Stops cached under the provisional trip move with it; the queued stop
	// items replace them with canonical records as they apply in turn.
	local, found, err := p.repo.GetCachedTrip(ctx, provisionalID)
	if err != nil {
		return idRemap{}, err
	}
	if found {
		for _, stop := range local.Stops {
			stop.TripID = created.ID
			created.Stops = append(created.Stops, stop)
		}
	}
	if err := p.repo.RemoveTrip(ctx, provisionalID); err != nil {
		return idRemap{}, err
	}
	if err := p.repo.CacheTrip(ctx, created); err != nil {
		return idRemap{}, err
	}
	return idRemap{from: provisionalID, to: created.ID}, nil
}

func (p *Processor) applyStop(ctx context.Context, payload queue.StopPayload) (idRemap, error) {
	stop := payload.Stop
	if stop.TripID == "" {
		// Unreachable through the session controller, which never persists a
		// stop without its trip. A stray record can never be applied, so it
		// is dropped rather than left blocking the head of the queue.
		p.logger.Warn("dropping queued stop without trip id", "stop_id", stop.ID)
		return idRemap{}, nil
	}

	created, err := p.backend.AddTripStop(ctx, stop.TripID, stop)
	if err != nil {
		return idRemap{}, err
	}

	if stop.ID == "" || stop.ID == created.ID {
		return idRemap{}, p.repo.CacheStop(ctx, created)
	}
	if err := p.repo.RemoveStop(ctx, stop.TripID, stop.ID); err != nil {
		return idRemap{}, err
	}
	if err := p.repo.CacheStop(ctx, created); err != nil {
		return idRemap{}, err
	}
	return idRemap{from: stop.ID, to: created.ID}, nil
}

func (p *Processor) applyDelete(ctx context.Context, payload queue.DeletePayload) error {
	var err error
	switch payload.Entity {
	case queue.EntityTrip:
		err = p.backend.DeleteTrip(ctx, payload.ID)
	case queue.EntityStop:
		err = p.backend.DeleteTripStop(ctx, payload.TripID, payload.ID)
	default:
		return fmt.Errorf("unsupported delete entity %q", payload.Entity)
	}

	// A remote 404 means the entity is already gone; the delete reached its
	// goal state, so a replay must not be treated as a failure.
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (p *Processor) applyReorder(ctx context.Context, payload queue.ReorderPayload) error {
	for _, order := range payload.Orders {
		updated, err := p.backend.UpdateStopOrder(ctx, payload.TripID, order.StopID, order.StopOrder)
		if err != nil {
			return fmt.Errorf("stop %s: %w", order.StopID, err)
		}
		if err := p.repo.CacheStop(ctx, updated); err != nil {
			return fmt.Errorf("stop %s: %w", order.StopID, err)
		}
	}
	return nil
}
