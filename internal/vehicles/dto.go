package vehicles

// VehicleForm is the request body for create/update.
type VehicleForm struct {
	Plate           string `json:"plate" validate:"required"`
	Category        string `json:"category" validate:"required"`
	CurrentOdometer int64  `json:"current_odometer" validate:"gte=0"`
}
