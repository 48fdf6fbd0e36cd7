package drivers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/locafrota/locafrota/internal/shared"
)

type memRepo struct {
	drivers map[int64]Driver
	nextID  int64
}

func newMemRepo() *memRepo {
	return &memRepo{drivers: make(map[int64]Driver), nextID: 1}
}

func (m *memRepo) List(ctx context.Context, limit, offset int) ([]Driver, int, error) {
	out := make([]Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Driver, error) {
	d, ok := m.drivers[id]
	if !ok {
		return Driver{}, fmt.Errorf("driver %d: %w", id, shared.ErrNotFound)
	}
	return d, nil
}

func (m *memRepo) Create(ctx context.Context, d Driver) (Driver, error) {
	d.ID = m.nextID
	m.nextID++
	m.drivers[d.ID] = d
	return d, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, d Driver) error {
	if _, ok := m.drivers[id]; !ok {
		return fmt.Errorf("driver %d: %w", id, shared.ErrNotFound)
	}
	d.ID = id
	m.drivers[id] = d
	return nil
}

func (m *memRepo) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	d, ok := m.drivers[id]
	if !ok {
		return fmt.Errorf("driver %d: %w", id, shared.ErrNotFound)
	}
	d.Blacklisted = blacklisted
	m.drivers[id] = d
	return nil
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), Driver{Document: "123", License: "AB1"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Driver{Name: "Ana", License: "AB1"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Driver{Name: "Ana", Document: "123"})
	require.ErrorIs(t, err, shared.ErrValidation)

	d, err := svc.Create(context.Background(), Driver{Name: "Ana", Document: "123", License: "AB1", Active: true})
	require.NoError(t, err)
	require.NotZero(t, d.ID)
}

func TestBlacklistRoundTrip(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	d, err := svc.Create(context.Background(), Driver{Name: "Ana", Document: "123", License: "AB1", Active: true})
	require.NoError(t, err)

	require.NoError(t, svc.Blacklist(context.Background(), d.ID))
	got, err := svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.True(t, got.Blacklisted)

	require.NoError(t, svc.Unblacklist(context.Background(), d.ID))
	got, err = svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.False(t, got.Blacklisted)
}
