package maintenance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/locafrota/locafrota/internal/shared"
	"github.com/locafrota/locafrota/internal/vehicles"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, vehicleID int64, status OrderStatus, limit, offset int) ([]Order, int, error)
}

// FleetPort invalidates the cached fleet summary after allocation changes.
type FleetPort interface {
	BustSummary(ctx context.Context)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages workshop orders. A rented vehicle never enters the
// workshop; rental allocation stays owned by the contract lifecycle.
type Service struct {
	repo  RepositoryPort
	fleet FleetPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, fleet FleetPort, audit AuditPort) *Service {
	return &Service{
		repo:  repo,
		fleet: fleet,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Open creates an order and moves the vehicle out of service.
func (s *Service) Open(ctx context.Context, vehicleID int64, orderType OrderType, description string) (Order, error) {
	target, ok := orderType.VehicleStatus()
	if !ok {
		return Order{}, fmt.Errorf("unknown maintenance type %q: %w", orderType, shared.ErrValidation)
	}
	if strings.TrimSpace(description) == "" {
		return Order{}, fmt.Errorf("maintenance description is required: %w", shared.ErrValidation)
	}

	var created Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVehicleForUpdate(ctx, vehicleID)
		if err != nil {
			return err
		}
		if v.Status == vehicles.StatusRented {
			return fmt.Errorf("vehicle %d is rented: %w", v.ID, shared.ErrConflict)
		}
		if v.Status != vehicles.StatusAvailable {
			return fmt.Errorf("vehicle %d is %s: %w", v.ID, v.Status, shared.ErrInvalidState)
		}
		if err := tx.SetVehicleStatus(ctx, v.ID, target); err != nil {
			return err
		}
		created, err = tx.InsertOrder(ctx, Order{
			VehicleID:   vehicleID,
			Type:        orderType,
			Description: description,
			Status:      OrderOpen,
			OpenedAt:    s.now(),
		})
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.afterChange(ctx, created.ID, "maintenance:open", map[string]any{"vehicle_id": vehicleID, "type": string(orderType)})
	return created, nil
}

// Close finishes an order and returns the vehicle to the available pool.
func (s *Service) Close(ctx context.Context, id int64) (Order, error) {
	var closed Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != OrderOpen {
			return fmt.Errorf("maintenance order %d is already closed: %w", id, shared.ErrInvalidState)
		}
		if err := tx.SetVehicleStatus(ctx, o.VehicleID, vehicles.StatusAvailable); err != nil {
			return err
		}
		now := s.now()
		o.Status = OrderClosed
		o.ClosedAt = &now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		closed = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.afterChange(ctx, closed.ID, "maintenance:close", map[string]any{"vehicle_id": closed.VehicleID})
	return closed, nil
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	if id <= 0 {
		return Order{}, fmt.Errorf("invalid order ID: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List returns orders.
func (s *Service) List(ctx context.Context, vehicleID int64, status OrderStatus, limit, offset int) ([]Order, int, error) {
	return s.repo.List(ctx, vehicleID, status, limit, offset)
}

func (s *Service) afterChange(ctx context.Context, orderID int64, action string, meta map[string]any) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "maintenance_order",
			EntityID: strconv.FormatInt(orderID, 10),
			Meta:     meta,
		})
	}
	if s.fleet != nil {
		s.fleet.BustSummary(ctx)
	}
}
