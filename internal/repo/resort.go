package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/roamline/roamline/internal/domain"
)

// ResortRepo defines the persistence operations for Resorts.
// Resorts are reference data: discovered from mapping providers, upserted
// whole, and never partially updated.
type ResortRepo interface {
	// Upsert inserts the resort or overwrites it entirely when the id
	// already exists. A resort without a valid UUID gets one assigned.
	Upsert(ctx context.Context, resort domain.Resort) (domain.Resort, error)

	// GetByID retrieves a resort by primary key.
	// Returns domain.ErrNotFound if no resort with that ID exists.
	GetByID(ctx context.Context, id string) (domain.Resort, error)
}

// pgResortRepo is the Postgres implementation of ResortRepo.
type pgResortRepo struct {
	db db
}

// NewResortRepo constructs a ResortRepo backed by the provided db connection.
func NewResortRepo(db db) ResortRepo {
	return &pgResortRepo{db: db}
}

const resortColumns = `id, name, address, lat, lng, rating, amenities, phone, website, updated_at`

func (r *pgResortRepo) Upsert(ctx context.Context, resort domain.Resort) (domain.Resort, error) {
	id, err := uuid.Parse(resort.ID)
	if err != nil {
		id = uuid.New()
	}

	amenities, err := json.Marshal(resort.Amenities)
	if err != nil {
		return domain.Resort{}, fmt.Errorf("repo.ResortRepo.Upsert: marshal amenities: %w", err)
	}

	q := `
		INSERT INTO resorts (id, name, address, lat, lng, rating, amenities, phone, website)
		VALUES (@id, @name, @address, @lat, @lng, @rating, @amenities, @phone, @website)
		ON CONFLICT (id) DO UPDATE SET
			name       = excluded.name,
			address    = excluded.address,
			lat        = excluded.lat,
			lng        = excluded.lng,
			rating     = excluded.rating,
			amenities  = excluded.amenities,
			phone      = excluded.phone,
			website    = excluded.website,
			updated_at = now()
		RETURNING ` + resortColumns

	args := pgx.NamedArgs{
		"id":        id,
		"name":      resort.Name,
		"address":   resort.Address,
		"lat":       resort.Lat,
		"lng":       resort.Lng,
		"rating":    resort.Rating,
		"amenities": amenities,
		"phone":     resort.Phone,
		"website":   resort.Website,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanResort(row)
	if err != nil {
		return domain.Resort{}, fmt.Errorf("repo.ResortRepo.Upsert: %w", err)
	}
	return result, nil
}

func (r *pgResortRepo) GetByID(ctx context.Context, id string) (domain.Resort, error) {
	resortID, err := uuid.Parse(id)
	if err != nil {
		return domain.Resort{}, fmt.Errorf("repo.ResortRepo.GetByID: %w", domain.ErrNotFound)
	}

	q := `SELECT ` + resortColumns + ` FROM resorts WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": resortID})
	result, err := scanResort(row)
	if err != nil {
		return domain.Resort{}, fmt.Errorf("repo.ResortRepo.GetByID: %w", err)
	}
	return result, nil
}

// scanResort maps a single database row into a domain.Resort.
func scanResort(s scanner) (domain.Resort, error) {
	var (
		res       domain.Resort
		id        pgtype.UUID
		amenities []byte
	)

	err := s.Scan(&id, &res.Name, &res.Address, &res.Lat, &res.Lng, &res.Rating,
		&amenities, &res.Phone, &res.Website, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Resort{}, domain.ErrNotFound
		}
		return domain.Resort{}, err
	}

	res.ID = uuid.UUID(id.Bytes).String()
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &res.Amenities); err != nil {
			return domain.Resort{}, fmt.Errorf("unmarshal amenities: %w", err)
		}
	}

	return res, nil
}
