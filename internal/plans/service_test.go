package plans

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/locafrota/locafrota/internal/shared"
)

type memRepo struct {
	plans  map[int64]Plan
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{plans: make(map[int64]Plan), nextID: 1}
}

func (m *memRepo) List(ctx context.Context, limit, offset int) ([]Plan, int, error) {
	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Plan, error) {
	p, ok := m.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("plan %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (m *memRepo) Create(ctx context.Context, p Plan) (Plan, error) {
	p.ID = m.nextID
	m.nextID++
	m.plans[p.ID] = p
	return p, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, p Plan) error {
	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("plan %d: %w", id, shared.ErrNotFound)
	}
	p.ID = id
	m.plans[id] = p
	return nil
}

func TestCreateRequiresNameAndCategories(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), Plan{AllowedCategories: []string{"SEDAN"}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Plan{Name: "Urbano"})
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := svc.Create(context.Background(), Plan{Name: "Urbano", AllowedCategories: []string{"SEDAN", "HATCH"}, Active: true})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
}

func TestAllowsMatchesExactCategory(t *testing.T) {
	p := Plan{AllowedCategories: []string{"SEDAN", "SUV"}}

	require.True(t, p.Allows("SEDAN"))
	require.True(t, p.Allows("SUV"))
	require.False(t, p.Allows("TRUCK"))
	require.False(t, p.Allows("sedan"))
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrValidation)
}
