package contracts

import "time"

// ContractForm is the request body for create and update.
type ContractForm struct {
	ContractNumber  string    `json:"contract_number" validate:"required"`
	DriverID        int64     `json:"driver_id" validate:"required,gt=0"`
	VehicleID       int64     `json:"vehicle_id" validate:"required,gt=0"`
	PlanID          int64     `json:"plan_id" validate:"required,gt=0"`
	BranchID        int64     `json:"branch_id" validate:"required,gt=0"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	BillingDay      int       `json:"billing_day" validate:"required,gte=1,lte=31"`
	MonthlyAmount   float64   `json:"monthly_amount" validate:"gte=0"`
	Deposit         float64   `json:"deposit" validate:"gte=0"`
	OdometerStart   int64     `json:"odometer_start" validate:"gte=0"`
	OdometerCurrent int64     `json:"odometer_current" validate:"gte=0"`
}

// ReasonForm carries the mandatory reason for suspend and cancel.
type ReasonForm struct {
	Reason string `json:"reason" validate:"required"`
}

// ChangeVehicleForm carries the replacement vehicle.
type ChangeVehicleForm struct {
	VehicleID int64  `json:"vehicle_id" validate:"required,gt=0"`
	Note      string `json:"note"`
}
