package maintenance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/internal/vehicles"
)

type memRepo struct {
	orders   map[int64]Order
	vehicles map[int64]vehicles.Vehicle
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[int64]Order{}, vehicles: map[int64]vehicles.Vehicle{}, nextID: 1}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("maintenance order %d: %w", id, shared.ErrNotFound)
	}
	return o, nil
}

func (m *memRepo) List(ctx context.Context, vehicleID int64, status OrderStatus, limit, offset int) ([]Order, int, error) {
	var out []Order
	for _, o := range m.orders {
		if vehicleID != 0 && o.VehicleID != vehicleID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) GetVehicleForUpdate(ctx context.Context, id int64) (vehicles.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return vehicles.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
	}
	return v, nil
}

func (m *memRepo) SetVehicleStatus(ctx context.Context, id int64, status vehicles.Status) error {
	v, ok := m.vehicles[id]
	if !ok {
		return fmt.Errorf("vehicle %d: %w", id, shared.ErrNotFound)
	}
	v.Status = status
	m.vehicles[id] = v
	return nil
}

func (m *memRepo) InsertOrder(ctx context.Context, o Order) (Order, error) {
	o.ID = m.nextID
	m.nextID++
	m.orders[o.ID] = o
	return o, nil
}

func (m *memRepo) UpdateOrder(ctx context.Context, o Order) error {
	if _, ok := m.orders[o.ID]; !ok {
		return fmt.Errorf("maintenance order %d: %w", o.ID, shared.ErrNotFound)
	}
	m.orders[o.ID] = o
	return nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	repo.vehicles[1] = vehicles.Vehicle{ID: 1, Status: vehicles.StatusAvailable}
	repo.vehicles[2] = vehicles.Vehicle{ID: 2, Status: vehicles.StatusRented}
	svc := NewService(repo, nil, nil).
		WithClock(func() time.Time { return time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC) })
	return svc, repo
}

func TestOpenMovesVehicleToWorkshop(t *testing.T) {
	svc, repo := newTestService(t)

	o, err := svc.Open(context.Background(), 1, TypeMaintenance, "brake pads")
	require.NoError(t, err)
	require.Equal(t, OrderOpen, o.Status)
	require.Equal(t, vehicles.StatusMaintenance, repo.vehicles[1].Status)
}

func TestOpenInspectionUsesInspectionState(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Open(context.Background(), 1, TypeInspection, "annual inspection")
	require.NoError(t, err)
	require.Equal(t, vehicles.StatusInspection, repo.vehicles[1].Status)
}

func TestOpenRefusesRentedVehicle(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Open(context.Background(), 2, TypeMaintenance, "oil change")
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, vehicles.StatusRented, repo.vehicles[2].Status)
	require.Empty(t, repo.orders)
}

func TestOpenRefusesVehicleAlreadyInWorkshop(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Open(context.Background(), 1, TypeMaintenance, "brake pads")
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), 1, TypeInspection, "while at it")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCloseReturnsVehicleToPool(t *testing.T) {
	svc, repo := newTestService(t)

	o, err := svc.Open(context.Background(), 1, TypeMaintenance, "brake pads")
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, OrderClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.Equal(t, vehicles.StatusAvailable, repo.vehicles[1].Status)

	_, err = svc.Close(context.Background(), o.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
