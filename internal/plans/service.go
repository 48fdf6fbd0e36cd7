package plans

import (
	"context"
	"fmt"
	"strings"

	"github.com/locafrota/locafrota/internal/shared"
)

// Service handles plan administration.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) validate(p Plan) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("plan name is required: %w", shared.ErrValidation)
	}
	if len(p.AllowedCategories) == 0 {
		return fmt.Errorf("plan requires at least one allowed category: %w", shared.ErrValidation)
	}
	return nil
}

// List returns plans.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Plan, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get returns one plan.
func (s *Service) Get(ctx context.Context, id int64) (Plan, error) {
	if id <= 0 {
		return Plan{}, fmt.Errorf("invalid plan ID: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a plan.
func (s *Service) Create(ctx context.Context, p Plan) (Plan, error) {
	if err := s.validate(p); err != nil {
		return Plan{}, err
	}
	return s.repo.Create(ctx, p)
}

// Update persists plan fields.
func (s *Service) Update(ctx context.Context, id int64, p Plan) error {
	if id <= 0 {
		return fmt.Errorf("invalid plan ID: %w", shared.ErrValidation)
	}
	if err := s.validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, p)
}
