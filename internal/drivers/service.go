package drivers

import (
	"context"
	"fmt"
	"strings"

	"github.com/locafrota/locafrota/internal/shared"
)

// Service handles driver administration.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) validate(d Driver) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("driver name is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(d.Document) == "" {
		return fmt.Errorf("driver document is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(d.License) == "" {
		return fmt.Errorf("driver license is required: %w", shared.ErrValidation)
	}
	return nil
}

// List returns drivers.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Driver, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get returns one driver.
func (s *Service) Get(ctx context.Context, id int64) (Driver, error) {
	if id <= 0 {
		return Driver{}, fmt.Errorf("invalid driver ID: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create registers a driver.
func (s *Service) Create(ctx context.Context, d Driver) (Driver, error) {
	if err := s.validate(d); err != nil {
		return Driver{}, err
	}
	return s.repo.Create(ctx, d)
}

// Update persists driver fields.
func (s *Service) Update(ctx context.Context, id int64, d Driver) error {
	if id <= 0 {
		return fmt.Errorf("invalid driver ID: %w", shared.ErrValidation)
	}
	if err := s.validate(d); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, d)
}

// Blacklist blocks a driver from new contracts.
func (s *Service) Blacklist(ctx context.Context, id int64) error {
	return s.repo.SetBlacklisted(ctx, id, true)
}

// Unblacklist re-enables a driver.
func (s *Service) Unblacklist(ctx context.Context, id int64) error {
	return s.repo.SetBlacklisted(ctx, id, false)
}
