package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/repo"
	"github.com/roamline/roamline/testutil"
)

func newTestResortRepo(t *testing.T) repo.ResortRepo {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewResortRepo(tx)
}

func resortFixture() domain.Resort {
	return domain.Resort{
		Name:    "Pine Ridge RV Resort",
		Address: "1 Forest Rd, Bend, OR",
		Lat:     44.0582,
		Lng:     -121.3153,
		Rating:  4.5,
		Amenities: map[string]any{
			"wifi":      true,
			"max_rig":   float64(45),
			"utilities": "full hookup",
		},
		Phone:   "+1 541 555 0100",
		Website: "https://pineridge.example",
	}
}

func TestResortRepo_Upsert_AssignsID(t *testing.T) {
	r := newTestResortRepo(t)
	ctx := context.Background()

	got, err := r.Upsert(ctx, resortFixture())

	require.NoError(t, err)
	_, parseErr := uuid.Parse(got.ID)
	assert.NoError(t, parseErr, "resort without a valid UUID gets one assigned")
	assert.Equal(t, "Pine Ridge RV Resort", got.Name)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestResortRepo_Upsert_OverwritesWhole(t *testing.T) {
	r := newTestResortRepo(t)
	ctx := context.Background()

	created, err := r.Upsert(ctx, resortFixture())
	require.NoError(t, err)

	updated := created
	updated.Rating = 3.0
	updated.Amenities = map[string]any{"wifi": false}

	got, err := r.Upsert(ctx, updated)

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 3.0, got.Rating)
	// Amenities are replaced, not merged.
	assert.Equal(t, map[string]any{"wifi": false}, got.Amenities)
}

func TestResortRepo_GetByID_RoundTripsAmenities(t *testing.T) {
	r := newTestResortRepo(t)
	ctx := context.Background()

	created, err := r.Upsert(ctx, resortFixture())
	require.NoError(t, err)

	got, err := r.GetByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, true, got.Amenities["wifi"])
	assert.Equal(t, "full hookup", got.Amenities["utilities"])
}

func TestResortRepo_GetByID_NotFound(t *testing.T) {
	r := newTestResortRepo(t)
	ctx := context.Background()

	_, err := r.GetByID(ctx, uuid.NewString())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
