// Package repo contains all database access logic for the Roamline API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/roamline/roamline/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type TripRepo interface {
	// Create inserts a new trip. When the supplied trip carries a valid
	// server-assigned UUID the insert is an upsert by id — offline clients
	// replay their queued mutations at-least-once, and a replayed create
	// must converge instead of duplicating. Provisional (client-generated)
	// ids are discarded and a fresh UUID is assigned.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by primary key, without stops.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id string) (domain.Trip, error)

	// ListByUser returns one page of a user's trips ordered by created_at
	// descending, plus the total count.
	ListByUser(ctx context.Context, userID string, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// Update overwrites the mutable fields of an existing trip and returns
	// the updated record. Returns domain.ErrNotFound if it does not exist.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip by ID; its stops cascade.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, user_id, name, start_address, start_lat, start_lng,
		end_address, end_lat, end_lng, status, created_at, updated_at`

func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if trip.Status == "" {
		trip.Status = domain.StatusDraft
	}

	args := pgx.NamedArgs{
		"user_id":       trip.UserID,
		"name":          trip.Name,
		"start_address": trip.StartLocation.Address,
		"start_lat":     trip.StartLocation.Lat,
		"start_lng":     trip.StartLocation.Lng,
		"end_address":   trip.EndLocation.Address,
		"end_lat":       trip.EndLocation.Lat,
		"end_lng":       trip.EndLocation.Lng,
		"status":        string(trip.Status),
	}

	q := `
		INSERT INTO trips (user_id, name, start_address, start_lat, start_lng,
			end_address, end_lat, end_lng, status)
		VALUES (@user_id, @name, @start_address, @start_lat, @start_lng,
			@end_address, @end_lat, @end_lng, @status)
		RETURNING ` + tripColumns

	// A valid UUID means the client already holds a server-assigned id and
	// this create is a replay: upsert so it converges.
	if id, err := uuid.Parse(trip.ID); err == nil {
		args["id"] = id
		q = `
			INSERT INTO trips (id, user_id, name, start_address, start_lat, start_lng,
				end_address, end_lat, end_lng, status)
			VALUES (@id, @user_id, @name, @start_address, @start_lat, @start_lng,
				@end_address, @end_lat, @end_lng, @status)
			ON CONFLICT (id) DO UPDATE SET
				name          = excluded.name,
				start_address = excluded.start_address,
				start_lat     = excluded.start_lat,
				start_lng     = excluded.start_lng,
				end_address   = excluded.end_address,
				end_lat       = excluded.end_lat,
				end_lng       = excluded.end_lng,
				status        = excluded.status,
				updated_at    = now()
			RETURNING ` + tripColumns
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	tripID, err := uuid.Parse(id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", domain.ErrNotFound)
	}

	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) ListByUser(ctx context.Context, userID string, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	var total int64
	countRow := r.db.QueryRow(ctx, `SELECT count(*) FROM trips WHERE user_id = @user_id`,
		pgx.NamedArgs{"user_id": userID})
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: count: %w", err)
	}

	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE user_id = @user_id
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"user_id": userID,
		"limit":   p.Limit,
		"offset":  p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: rows: %w", err)
	}

	return trips, total, nil
}

func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	tripID, err := uuid.Parse(trip.ID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", domain.ErrNotFound)
	}

	q := `
		UPDATE trips
		SET name          = @name,
		    start_address = @start_address,
		    start_lat     = @start_lat,
		    start_lng     = @start_lng,
		    end_address   = @end_address,
		    end_lat       = @end_lat,
		    end_lng       = @end_lng,
		    status        = @status,
		    updated_at    = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":            tripID,
		"name":          trip.Name,
		"start_address": trip.StartLocation.Address,
		"start_lat":     trip.StartLocation.Lat,
		"start_lng":     trip.StartLocation.Lng,
		"end_address":   trip.EndLocation.Address,
		"end_lat":       trip.EndLocation.Lat,
		"end_lng":       trip.EndLocation.Lng,
		"status":        string(trip.Status),
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) Delete(ctx context.Context, id string) error {
	tripID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = @id`, pgx.NamedArgs{"id": tripID})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t      domain.Trip
		id     pgtype.UUID
		status string
	)

	err := s.Scan(&id, &t.UserID, &t.Name,
		&t.StartLocation.Address, &t.StartLocation.Lat, &t.StartLocation.Lng,
		&t.EndLocation.Address, &t.EndLocation.Lat, &t.EndLocation.Lng,
		&status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes).String()
	t.Status = domain.TripStatus(status)
	return t, nil
}
