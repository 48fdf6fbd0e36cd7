package vehicles

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/locafrota/locafrota/internal/shared"
)

// RepositoryPort defines data access methods for vehicles.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Vehicle, error)
	List(ctx context.Context, filters ListFilters) ([]Vehicle, int, error)
	Create(ctx context.Context, v Vehicle) (Vehicle, error)
	Update(ctx context.Context, id int64, v Vehicle) error
	SetStatus(ctx context.Context, id int64, status Status) error
	CountByStatus(ctx context.Context) (FleetSummary, error)
}

// Service handles fleet administration. Allocation moves between AVAILABLE
// and RENTED are deliberately absent: those belong to the contract
// lifecycle and happen inside its transaction.
type Service struct {
	repo         RepositoryPort
	cache        *SummaryCache
	summaryGroup singleflight.Group
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, cache *SummaryCache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) validate(v Vehicle) error {
	if strings.TrimSpace(v.Plate) == "" {
		return fmt.Errorf("vehicle plate is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(v.Category) == "" {
		return fmt.Errorf("vehicle category is required: %w", shared.ErrValidation)
	}
	if v.CurrentOdometer < 0 {
		return fmt.Errorf("odometer must not be negative: %w", shared.ErrValidation)
	}
	return nil
}

// Get returns one vehicle.
func (s *Service) Get(ctx context.Context, id int64) (Vehicle, error) {
	return s.repo.Get(ctx, id)
}

// List returns vehicles matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Vehicle, int, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown vehicle status %q: %w", filters.Status, shared.ErrValidation)
	}
	return s.repo.List(ctx, filters)
}

// Create registers a vehicle; it starts AVAILABLE.
func (s *Service) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	if err := s.validate(v); err != nil {
		return Vehicle{}, err
	}
	created, err := s.repo.Create(ctx, v)
	if err != nil {
		return Vehicle{}, err
	}
	s.cache.Bust(ctx)
	return created, nil
}

// Update persists non-allocation fields.
func (s *Service) Update(ctx context.Context, id int64, v Vehicle) error {
	if err := s.validate(v); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, v)
}

// Deactivate retires a vehicle from the fleet. Rented vehicles must finish
// their contract first.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.Status == StatusRented {
		return fmt.Errorf("vehicle %s is rented: %w", v.Plate, shared.ErrInvalidState)
	}
	if v.Status == StatusInactive {
		return fmt.Errorf("vehicle %s is already inactive: %w", v.Plate, shared.ErrInvalidState)
	}
	if err := s.repo.SetStatus(ctx, id, StatusInactive); err != nil {
		return err
	}
	s.cache.Bust(ctx)
	return nil
}

// Reactivate returns an inactive vehicle to the available pool.
func (s *Service) Reactivate(ctx context.Context, id int64) error {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.Status != StatusInactive {
		return fmt.Errorf("vehicle %s is not inactive: %w", v.Plate, shared.ErrInvalidState)
	}
	if err := s.repo.SetStatus(ctx, id, StatusAvailable); err != nil {
		return err
	}
	s.cache.Bust(ctx)
	return nil
}

// FleetSummary aggregates the fleet per allocation state. Concurrent cache
// misses collapse into one database query.
func (s *Service) FleetSummary(ctx context.Context) (FleetSummary, error) {
	if summary, ok := s.cache.Get(ctx); ok {
		return summary, nil
	}
	resultCh := s.summaryGroup.DoChan(summaryCacheKey, func() (any, error) {
		summary, err := s.repo.CountByStatus(context.WithoutCancel(ctx))
		if err != nil {
			return FleetSummary{}, err
		}
		s.cache.Set(context.WithoutCancel(ctx), summary)
		return summary, nil
	})
	select {
	case <-ctx.Done():
		return FleetSummary{}, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return FleetSummary{}, res.Err
		}
		return res.Val.(FleetSummary), nil
	}
}

// BustSummary invalidates the cached summary; the contract lifecycle calls
// this after allocation changes.
func (s *Service) BustSummary(ctx context.Context) {
	s.cache.Bust(ctx)
}
