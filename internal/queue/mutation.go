// Package queue implements the persisted mutation queue: an append-only log
// of write operations that could not (offline) or should not (failed
// synchronously is *not* queued — only offline writes are) be applied to the
// remote backend yet.
//
// The whole queue is stored as one cache entry under the "sync_queue" key.
// Items are strictly append-ordered; the queue never reorders or
// deduplicates. It is the caller's responsibility not to enqueue redundant
// operations (e.g. a stop update after its owning trip was queued for
// delete in the same session) — this is not enforced here.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roamline/roamline/internal/domain"
)

// Action identifies the kind of queued mutation.
type Action string

const (
	// ActionTrip queues the creation of a trip.
	ActionTrip Action = "trip"
	// ActionStop queues the addition of a stop to a trip.
	ActionStop Action = "stop"
	// ActionDelete queues the deletion of a trip or a stop.
	ActionDelete Action = "delete"
	// ActionReorder queues a reordering of a trip's stops.
	ActionReorder Action = "reorder"
)

// EntityKind tags which entity a delete payload targets.
type EntityKind string

const (
	EntityTrip EntityKind = "trip"
	EntityStop EntityKind = "stop"
)

// Payload is the sealed set of action-specific mutation payloads.
// Exactly one concrete type corresponds to each Action; the sync processor
// dispatches with an exhaustive type switch.
type Payload interface {
	action() Action
}

// TripPayload carries a locally-created trip awaiting remote creation.
// The Trip's id is provisional and is superseded by the server's id once the
// remote create succeeds.
type TripPayload struct {
	Trip domain.Trip `json:"trip"`
}

func (TripPayload) action() Action { return ActionTrip }

// StopPayload carries a locally-created stop awaiting remote creation.
type StopPayload struct {
	Stop domain.TripStop `json:"stop"`
}

func (StopPayload) action() Action { return ActionStop }

// DeletePayload carries a queued remote delete of a trip or a stop.
type DeletePayload struct {
	Entity EntityKind `json:"entity"`
	ID     string     `json:"id"`
	TripID string     `json:"trip_id,omitempty"`
}

func (DeletePayload) action() Action { return ActionDelete }

// StopOrder pairs a stop id with its new position within the trip.
type StopOrder struct {
	StopID    string `json:"stop_id"`
	StopOrder int    `json:"stop_order"`
}

// ReorderPayload carries a full reordering of a trip's stops. The sync
// processor applies each order individually, so a remote replay of the same
// payload is an upsert, not a conflict.
type ReorderPayload struct {
	TripID string      `json:"trip_id"`
	Orders []StopOrder `json:"orders"`
}

func (ReorderPayload) action() Action { return ActionReorder }

// Mutation is one queued write operation.
type Mutation struct {
	Action     Action
	Payload    Payload
	EnqueuedAt time.Time
}

// mutationEnvelope is the persisted JSON shape of a Mutation. The payload is
// kept raw so decoding can switch on the action tag.
type mutationEnvelope struct {
	Action     Action          `json:"action"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// MarshalJSON encodes the mutation with its action tag.
func (m Mutation) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("queue.Mutation: marshal %s payload: %w", m.Action, err)
	}
	return json.Marshal(mutationEnvelope{
		Action:     m.Action,
		Payload:    raw,
		EnqueuedAt: m.EnqueuedAt,
	})
}

// UnmarshalJSON decodes the envelope and dispatches on the action tag to the
// matching payload type. Unknown actions are an error, never skipped: a
// queue entry this code cannot interpret must not be silently dropped.
func (m *Mutation) UnmarshalJSON(data []byte) error {
	var env mutationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("queue.Mutation: decode envelope: %w", err)
	}

	var payload Payload
	switch env.Action {
	case ActionTrip:
		payload = &TripPayload{}
	case ActionStop:
		payload = &StopPayload{}
	case ActionDelete:
		payload = &DeletePayload{}
	case ActionReorder:
		payload = &ReorderPayload{}
	default:
		return fmt.Errorf("queue.Mutation: unknown action %q", env.Action)
	}

	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return fmt.Errorf("queue.Mutation: decode %s payload: %w", env.Action, err)
	}

	m.Action = env.Action
	m.EnqueuedAt = env.EnqueuedAt
	switch p := payload.(type) {
	case *TripPayload:
		m.Payload = *p
	case *StopPayload:
		m.Payload = *p
	case *DeletePayload:
		m.Payload = *p
	case *ReorderPayload:
		m.Payload = *p
	}
	return nil
}
