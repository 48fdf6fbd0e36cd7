package branches

import (
	"context"
	"fmt"
	"strings"

	"github.com/locafrota/locafrota/internal/shared"
)

// Service handles branch administration.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) validate(b Branch) error {
	if strings.TrimSpace(b.Code) == "" {
		return fmt.Errorf("branch code is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("branch name is required: %w", shared.ErrValidation)
	}
	return nil
}

// List returns branches.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Branch, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get returns one branch.
func (s *Service) Get(ctx context.Context, id int64) (Branch, error) {
	if id <= 0 {
		return Branch{}, fmt.Errorf("invalid branch ID: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a branch.
func (s *Service) Create(ctx context.Context, b Branch) (Branch, error) {
	if err := s.validate(b); err != nil {
		return Branch{}, err
	}
	b.Code = strings.ToUpper(strings.TrimSpace(b.Code))
	return s.repo.Create(ctx, b)
}

// Update persists branch fields.
func (s *Service) Update(ctx context.Context, id int64, b Branch) error {
	if id <= 0 {
		return fmt.Errorf("invalid branch ID: %w", shared.ErrValidation)
	}
	if err := s.validate(b); err != nil {
		return err
	}
	b.Code = strings.ToUpper(strings.TrimSpace(b.Code))
	return s.repo.Update(ctx, id, b)
}
