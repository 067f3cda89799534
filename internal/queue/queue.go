package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/roamline/roamline/internal/cache"
)

// StoreKey is the single cache entry the whole queue is persisted under.
const StoreKey = "sync_queue"

// Queue is the persisted, append-only mutation queue.
//
// An item leaves the queue if and only if it was successfully applied
// remotely: Clear after a fully-successful drain, Retain after a partial
// one. Nothing in this type talks to the network.
type Queue struct {
	store cache.Store
}

// New constructs a Queue persisted in the given store.
func New(store cache.Store) *Queue {
	return &Queue{store: store}
}

// Enqueue appends a mutation to the queue. The enqueue timestamp is set here
// unless the caller already stamped one.
func (q *Queue) Enqueue(ctx context.Context, action Action, payload Payload) error {
	items, err := q.load(ctx)
	if err != nil {
		return fmt.Errorf("queue.Queue.Enqueue: %w", err)
	}

	items = append(items, Mutation{
		Action:     action,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	})

	if err := q.store.Put(ctx, StoreKey, items); err != nil {
		return fmt.Errorf("queue.Queue.Enqueue: %w", err)
	}
	return nil
}

// PeekAll returns a copy of every queued mutation in enqueue order without
// removing anything. Intended for the sync processor and diagnostics.
func (q *Queue) PeekAll(ctx context.Context) ([]Mutation, error) {
	items, err := q.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue.Queue.PeekAll: %w", err)
	}
	return items, nil
}

// Clear removes every queued mutation. Called after a drain that applied
// all items with zero failures.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.store.Remove(ctx, StoreKey); err != nil {
		return fmt.Errorf("queue.Queue.Clear: %w", err)
	}
	return nil
}

// Retain keeps only the tail of the queue starting at fromIndex, preserving
// order. Used after a partial drain: everything before fromIndex was applied
// remotely and must not be replayed.
func (q *Queue) Retain(ctx context.Context, fromIndex int) error {
	items, err := q.load(ctx)
	if err != nil {
		return fmt.Errorf("queue.Queue.Retain: %w", err)
	}

	if fromIndex <= 0 {
		return nil
	}
	if fromIndex >= len(items) {
		return q.Clear(ctx)
	}

	if err := q.store.Put(ctx, StoreKey, items[fromIndex:]); err != nil {
		return fmt.Errorf("queue.Queue.Retain: %w", err)
	}
	return nil
}

// load reads the persisted queue, returning an empty slice when the entry is
// absent.
func (q *Queue) load(ctx context.Context) ([]Mutation, error) {
	var items []Mutation
	if _, err := q.store.Get(ctx, StoreKey, &items); err != nil {
		return nil, err
	}
	return items, nil
}
