package maintenance

import (
	"time"

	"github.com/locafrota/locafrota/internal/vehicles"
)

// OrderType selects which out-of-service state the vehicle enters.
type OrderType string

const (
	TypeMaintenance OrderType = "MAINTENANCE"
	TypeInspection  OrderType = "INSPECTION"
)

// VehicleStatus maps the order type to the matching allocation state.
func (t OrderType) VehicleStatus() (vehicles.Status, bool) {
	switch t {
	case TypeMaintenance:
		return vehicles.StatusMaintenance, true
	case TypeInspection:
		return vehicles.StatusInspection, true
	}
	return "", false
}

// OrderStatus tracks whether the workshop still holds the vehicle.
type OrderStatus string

const (
	OrderOpen   OrderStatus = "OPEN"
	OrderClosed OrderStatus = "CLOSED"
)

// Order is one workshop visit for a vehicle.
type Order struct {
	ID          int64       `json:"id"`
	VehicleID   int64       `json:"vehicle_id"`
	Type        OrderType   `json:"type"`
	Description string      `json:"description"`
	Status      OrderStatus `json:"status"`
	OpenedAt    time.Time   `json:"opened_at"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
