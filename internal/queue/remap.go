package queue

import (
	"context"
	"fmt"
)

// RemapID rewrites every queued payload that references oldID to use newID
// instead, persisting the result. The sync processor calls this after a
// remote create assigns a server id, so mutations enqueued against a
// provisional id never go out carrying a dead reference — not on this drain,
// and not on a later one after a partial failure or a restart.
func (q *Queue) RemapID(ctx context.Context, oldID, newID string) error {
	items, err := q.load(ctx)
	if err != nil {
		return fmt.Errorf("queue.Queue.RemapID: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	for i := range items {
		items[i].Payload = RemapPayloadID(items[i].Payload, oldID, newID)
	}

	if err := q.store.Put(ctx, StoreKey, items); err != nil {
		return fmt.Errorf("queue.Queue.RemapID: %w", err)
	}
	return nil
}

// RemapPayloadID returns payload with every reference to oldID replaced by
// newID. Payloads are value types, so the input is never mutated.
func RemapPayloadID(p Payload, oldID, newID string) Payload {
	switch payload := p.(type) {
	case TripPayload:
		if payload.Trip.ID == oldID {
			payload.Trip.ID = newID
		}
		return payload
	case StopPayload:
		if payload.Stop.ID == oldID {
			payload.Stop.ID = newID
		}
		if payload.Stop.TripID == oldID {
			payload.Stop.TripID = newID
		}
		return payload
	case DeletePayload:
		if payload.ID == oldID {
			payload.ID = newID
		}
		if payload.TripID == oldID {
			payload.TripID = newID
		}
		return payload
	case ReorderPayload:
		if payload.TripID == oldID {
			payload.TripID = newID
		}
		orders := make([]StopOrder, len(payload.Orders))
		copy(orders, payload.Orders)
		for i := range orders {
			if orders[i].StopID == oldID {
				orders[i].StopID = newID
			}
		}
		payload.Orders = orders
		return payload
	default:
		return p
	}
}

// DropEntity removes every queued mutation that targets the given entity id.
// The session controller calls this when a provisional entity is deleted
// before it ever synced: the queued create (and anything enqueued against it)
// would otherwise resurrect the deleted state on the next drain.
//
// A reorder that merely lists the id among its orders loses that entry but
// keeps the rest; it is dropped whole only when its trip is the target.
func (q *Queue) DropEntity(ctx context.Context, id string) error {
	items, err := q.load(ctx)
	if err != nil {
		return fmt.Errorf("queue.Queue.DropEntity: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	kept := make([]Mutation, 0, len(items))
	for _, item := range items {
		payload, keep := dropEntityFromPayload(item.Payload, id)
		if !keep {
			continue
		}
		item.Payload = payload
		kept = append(kept, item)
	}
	if len(kept) == len(items) {
		return nil
	}

	if len(kept) == 0 {
		if err := q.store.Remove(ctx, StoreKey); err != nil {
			return fmt.Errorf("queue.Queue.DropEntity: %w", err)
		}
		return nil
	}
	if err := q.store.Put(ctx, StoreKey, kept); err != nil {
		return fmt.Errorf("queue.Queue.DropEntity: %w", err)
	}
	return nil
}

func dropEntityFromPayload(p Payload, id string) (Payload, bool) {
	switch payload := p.(type) {
	case TripPayload:
		return payload, payload.Trip.ID != id
	case StopPayload:
		return payload, payload.Stop.ID != id && payload.Stop.TripID != id
	case DeletePayload:
		return payload, payload.ID != id
	case ReorderPayload:
		if payload.TripID == id {
			return payload, false
		}
		orders := make([]StopOrder, 0, len(payload.Orders))
		for _, o := range payload.Orders {
			if o.StopID != id {
				orders = append(orders, o)
			}
		}
		payload.Orders = orders
		return payload, len(orders) > 0
	default:
		return p, true
	}
}
