package contracts

import "time"

// Status is a contract lifecycle state. Values are persisted as-is, so they
// keep the original pt-BR wire form.
type Status string

const (
	StatusDraft     Status = "RASCUNHO"
	StatusActive    Status = "ATIVO"
	StatusSuspended Status = "SUSPENSO"
	StatusCanceled  Status = "CANCELADO"
	StatusCompleted Status = "CONCLUIDO"
)

// transitions is the exhaustive lifecycle table. A pair absent here is
// forbidden, so adding a state without wiring it cannot bypass a guard.
var transitions = map[Status]map[Status]bool{
	StatusDraft: {
		StatusActive:   true,
		StatusCanceled: true,
	},
	StatusActive: {
		StatusSuspended: true,
		StatusCanceled:  true,
		StatusCompleted: true,
	},
	StatusSuspended: {
		StatusActive:   true,
		StatusCanceled: true,
	},
	StatusCanceled:  {},
	StatusCompleted: {},
}

// CanTransition reports whether the lifecycle table allows s -> to.
func (s Status) CanTransition(to Status) bool {
	return transitions[s][to]
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Contract is one rental agreement binding a driver, a vehicle and a plan
// over a date range.
type Contract struct {
	ID              int64      `json:"id"`
	ContractNumber  string     `json:"contract_number"`
	DriverID        int64      `json:"driver_id"`
	VehicleID       int64      `json:"vehicle_id"`
	PlanID          int64      `json:"plan_id"`
	BranchID        int64      `json:"branch_id"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	BillingDay      int        `json:"billing_day"`
	MonthlyAmount   float64    `json:"monthly_amount"`
	Deposit         float64    `json:"deposit"`
	OdometerStart   int64      `json:"odometer_start"`
	OdometerCurrent int64      `json:"odometer_current"`
	Status          Status     `json:"status"`
	Notes           string     `json:"notes"`
	SignedAt        *time.Time `json:"signed_at,omitempty"`
	CanceledAt      *time.Time `json:"canceled_at,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ListFilters narrows contract listings.
type ListFilters struct {
	Status    Status
	DriverID  int64
	VehicleID int64
	BranchID  int64
	Limit     int
	Offset    int
}

// appendNote adds a timestamped line to the append-only notes log.
func appendNote(notes, line string, at time.Time) string {
	entry := at.UTC().Format("2006-01-02 15:04") + " " + line
	if notes == "" {
		return entry
	}
	return notes + "\n" + entry
}
