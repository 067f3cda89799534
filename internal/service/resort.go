package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/internal/repo"
)

// ResortService implements business logic for Resort reference data.
// Resorts are not user-owned: any authenticated client may read them, and
// upserts come from discovery flows rather than manual editing.
type ResortService struct {
	resorts repo.ResortRepo
}

// NewResortService constructs a ResortService backed by the provided ResortRepo.
func NewResortService(resorts repo.ResortRepo) *ResortService {
	return &ResortService{resorts: resorts}
}

// Upsert validates and persists a resort, inserting or overwriting by id.
func (s *ResortService) Upsert(ctx context.Context, resort domain.Resort) (domain.Resort, error) {
	if strings.TrimSpace(resort.Name) == "" {
		return domain.Resort{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if resort.Rating < 0 || resort.Rating > 5 {
		return domain.Resort{}, fmt.Errorf("%w: rating must be between 0 and 5", domain.ErrValidation)
	}
	result, err := s.resorts.Upsert(ctx, resort)
	if err != nil {
		return domain.Resort{}, fmt.Errorf("service.ResortService.Upsert: %w", err)
	}
	return result, nil
}

// GetByID returns a single resort by ID.
func (s *ResortService) GetByID(ctx context.Context, id string) (domain.Resort, error) {
	result, err := s.resorts.GetByID(ctx, id)
	if err != nil {
		return domain.Resort{}, fmt.Errorf("service.ResortService.GetByID: %w", err)
	}
	return result, nil
}
