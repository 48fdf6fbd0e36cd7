package drivers

// DriverForm is the request body for create/update.
type DriverForm struct {
	Name     string `json:"name" validate:"required"`
	Document string `json:"document" validate:"required"`
	License  string `json:"license" validate:"required"`
	Phone    string `json:"phone"`
	Active   *bool  `json:"active"`
}
