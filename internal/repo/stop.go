package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/roamline/roamline/internal/domain"
)

// StopRepo defines the persistence operations for TripStops.
// All write and single-read operations are scoped by tripID to enforce ownership.
type StopRepo interface {
	// Create inserts a new stop. Like TripRepo.Create, a valid server UUID
	// on the incoming stop makes the insert an upsert by id so at-least-once
	// replays converge.
	Create(ctx context.Context, stop domain.TripStop) (domain.TripStop, error)

	// GetByID retrieves a single stop, scoped to the given tripID.
	// Returns domain.ErrNotFound if no stop with that ID exists under that trip.
	GetByID(ctx context.Context, tripID, stopID string) (domain.TripStop, error)

	// ListByTripID returns all stops for a trip ordered by stop_order ascending.
	ListByTripID(ctx context.Context, tripID string) ([]domain.TripStop, error)

	// Update overwrites the mutable fields of a stop, scoped to its tripID.
	Update(ctx context.Context, stop domain.TripStop) (domain.TripStop, error)

	// UpdateOrder sets a single stop's position within its trip. Setting the
	// position it already holds is a no-op, which is what makes queued
	// reorder replays safe.
	UpdateOrder(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error)

	// Delete removes a stop by ID, scoped to the given tripID.
	Delete(ctx context.Context, tripID, stopID string) error
}

// pgStopRepo is the Postgres implementation of StopRepo.
type pgStopRepo struct {
	db db
}

// NewStopRepo constructs a StopRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewStopRepo(db db) StopRepo {
	return &pgStopRepo{db: db}
}

const stopColumns = `id, trip_id, resort_id, stop_order, check_in, check_out, notes, booking`

func (r *pgStopRepo) Create(ctx context.Context, stop domain.TripStop) (domain.TripStop, error) {
	tripID, err := uuid.Parse(stop.TripID)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.Create: %w", domain.ErrNotFound)
	}

	booking, err := marshalBooking(stop.Booking)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.Create: %w", err)
	}

	args := pgx.NamedArgs{
		"trip_id":    tripID,
		"resort_id":  stop.ResortID,
		"stop_order": stop.StopOrder,
		"check_in":   stop.CheckIn.Time,
		"check_out":  stop.CheckOut.Time,
		"notes":      stop.Notes,
		"booking":    booking,
	}

	q := `
		INSERT INTO trip_stops (trip_id, resort_id, stop_order, check_in, check_out, notes, booking)
		VALUES (@trip_id, @resort_id, @stop_order, @check_in, @check_out, @notes, @booking)
		RETURNING ` + stopColumns

	if id, err := uuid.Parse(stop.ID); err == nil {
		args["id"] = id
		q = `
			INSERT INTO trip_stops (id, trip_id, resort_id, stop_order, check_in, check_out, notes, booking)
			VALUES (@id, @trip_id, @resort_id, @stop_order, @check_in, @check_out, @notes, @booking)
			ON CONFLICT (id) DO UPDATE SET
				resort_id  = excluded.resort_id,
				stop_order = excluded.stop_order,
				check_in   = excluded.check_in,
				check_out  = excluded.check_out,
				notes      = excluded.notes,
				booking    = excluded.booking
			RETURNING ` + stopColumns
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanStop(row)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgStopRepo) GetByID(ctx context.Context, tripID, stopID string) (domain.TripStop, error) {
	tid, sid, err := parseIDs(tripID, stopID)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.GetByID: %w", err)
	}

	q := `SELECT ` + stopColumns + ` FROM trip_stops WHERE id = @id AND trip_id = @trip_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": sid, "trip_id": tid})
	result, err := scanStop(row)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgStopRepo) ListByTripID(ctx context.Context, tripID string) ([]domain.TripStop, error) {
	tid, err := uuid.Parse(tripID)
	if err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTripID: %w", domain.ErrNotFound)
	}

	q := `SELECT ` + stopColumns + ` FROM trip_stops WHERE trip_id = @trip_id ORDER BY stop_order ASC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tid})
	if err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTripID: %w", err)
	}
	defer rows.Close()

	var stops []domain.TripStop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.StopRepo.ListByTripID: scan: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.StopRepo.ListByTripID: rows: %w", err)
	}

	return stops, nil
}

func (r *pgStopRepo) Update(ctx context.Context, stop domain.TripStop) (domain.TripStop, error) {
	tid, sid, err := parseIDs(stop.TripID, stop.ID)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.Update: %w", err)
	}

	booking, err := marshalBooking(stop.Booking)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.Update: %w", err)
	}

	q := `
		UPDATE trip_stops
		SET resort_id  = @resort_id,
		    stop_order = @stop_order,
		    check_in   = @check_in,
		    check_out  = @check_out,
		    notes      = @notes,
		    booking    = @booking
		WHERE id = @id AND trip_id = @trip_id
		RETURNING ` + stopColumns

	args := pgx.NamedArgs{
		"id":         sid,
		"trip_id":    tid,
		"resort_id":  stop.ResortID,
		"stop_order": stop.StopOrder,
		"check_in":   stop.CheckIn.Time,
		"check_out":  stop.CheckOut.Time,
		"notes":      stop.Notes,
		"booking":    booking,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanStop(row)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgStopRepo) UpdateOrder(ctx context.Context, tripID, stopID string, order int) (domain.TripStop, error) {
	tid, sid, err := parseIDs(tripID, stopID)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.UpdateOrder: %w", err)
	}

	q := `
		UPDATE trip_stops
		SET stop_order = @stop_order
		WHERE id = @id AND trip_id = @trip_id
		RETURNING ` + stopColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": sid, "trip_id": tid, "stop_order": order})
	result, err := scanStop(row)
	if err != nil {
		return domain.TripStop{}, fmt.Errorf("repo.StopRepo.UpdateOrder: %w", err)
	}
	return result, nil
}

func (r *pgStopRepo) Delete(ctx context.Context, tripID, stopID string) error {
	tid, sid, err := parseIDs(tripID, stopID)
	if err != nil {
		return fmt.Errorf("repo.StopRepo.Delete: %w", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM trip_stops WHERE id = @id AND trip_id = @trip_id`,
		pgx.NamedArgs{"id": sid, "trip_id": tid})
	if err != nil {
		return fmt.Errorf("repo.StopRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.StopRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// parseIDs parses a trip/stop id pair, mapping malformed ids to ErrNotFound
// (a non-UUID id cannot identify any row).
func parseIDs(tripID, stopID string) (uuid.UUID, uuid.UUID, error) {
	tid, err := uuid.Parse(tripID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrNotFound
	}
	sid, err := uuid.Parse(stopID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrNotFound
	}
	return tid, sid, nil
}

// marshalBooking serializes optional booking info for the JSONB column.
// nil stays NULL in the database.
func marshalBooking(b *domain.BookingInfo) (any, error) {
	if b == nil {
		return nil, nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal booking: %w", err)
	}
	return raw, nil
}

// scanStop maps a single database row into a domain.TripStop.
func scanStop(s scanner) (domain.TripStop, error) {
	var (
		st       domain.TripStop
		id       pgtype.UUID
		tripID   pgtype.UUID
		checkIn  pgtype.Date
		checkOut pgtype.Date
		booking  []byte
	)

	err := s.Scan(&id, &tripID, &st.ResortID, &st.StopOrder, &checkIn, &checkOut, &st.Notes, &booking)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripStop{}, domain.ErrNotFound
		}
		return domain.TripStop{}, err
	}

	st.ID = uuid.UUID(id.Bytes).String()
	st.TripID = uuid.UUID(tripID.Bytes).String()
	st.CheckIn = openapi_types.Date{Time: checkIn.Time}
	st.CheckOut = openapi_types.Date{Time: checkOut.Time}

	if len(booking) > 0 {
		var b domain.BookingInfo
		if err := json.Unmarshal(booking, &b); err != nil {
			return domain.TripStop{}, fmt.Errorf("unmarshal booking: %w", err)
		}
		st.Booking = &b
	}

	return st, nil
}
