package branches

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/locafrota/locafrota/internal/shared"
)

type memRepo struct {
	branches map[int64]Branch
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{branches: make(map[int64]Branch), nextID: 1}
}

func (m *memRepo) List(ctx context.Context, limit, offset int) ([]Branch, int, error) {
	out := make([]Branch, 0, len(m.branches))
	for _, b := range m.branches {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Branch, error) {
	b, ok := m.branches[id]
	if !ok {
		return Branch{}, fmt.Errorf("branch %d: %w", id, shared.ErrNotFound)
	}
	return b, nil
}

func (m *memRepo) Create(ctx context.Context, b Branch) (Branch, error) {
	for _, existing := range m.branches {
		if existing.Code == b.Code {
			return Branch{}, fmt.Errorf("branch code %q already exists: %w", b.Code, shared.ErrConflict)
		}
	}
	b.ID = m.nextID
	m.nextID++
	m.branches[b.ID] = b
	return b, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, b Branch) error {
	if _, ok := m.branches[id]; !ok {
		return fmt.Errorf("branch %d: %w", id, shared.ErrNotFound)
	}
	b.ID = id
	m.branches[id] = b
	return nil
}

func TestCreateUppercasesCode(t *testing.T) {
	svc := NewService(newMemRepo())

	b, err := svc.Create(context.Background(), Branch{Code: " sp01 ", Name: "São Paulo Centro"})
	require.NoError(t, err)
	require.Equal(t, "SP01", b.Code)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), Branch{Code: "SP01", Name: "Centro"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Branch{Code: "sp01", Name: "Outra"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), Branch{Name: "Centro"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Branch{Code: "SP01"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
