package vehicles

import "time"

// Status enumerates vehicle allocation states. AVAILABLE and RENTED are
// owned by the contract lifecycle; MAINTENANCE and INSPECTION by the
// maintenance module; INACTIVE by fleet administration.
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusRented      Status = "RENTED"
	StatusMaintenance Status = "MAINTENANCE"
	StatusInspection  Status = "INSPECTION"
	StatusInactive    Status = "INACTIVE"
)

// Valid reports whether s is a known allocation state.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusMaintenance, StatusInspection, StatusInactive:
		return true
	}
	return false
}

// Vehicle models one fleet vehicle.
type Vehicle struct {
	ID              int64     `json:"id"`
	Plate           string    `json:"plate"`
	Category        string    `json:"category"`
	Status          Status    `json:"status"`
	CurrentOdometer int64     `json:"current_odometer"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FleetSummary counts vehicles per allocation state.
type FleetSummary struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Rented      int `json:"rented"`
	Maintenance int `json:"maintenance"`
	Inspection  int `json:"inspection"`
	Inactive    int `json:"inactive"`
}

// ListFilters narrows vehicle listings.
type ListFilters struct {
	Status   Status
	Category string
	Limit    int
	Offset   int
}
