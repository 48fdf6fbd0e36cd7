package drivers

import "time"

// Driver models a registered driver. Blacklisted or inactive drivers cannot
// open new rental contracts.
type Driver struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Document    string    `json:"document"`
	License     string    `json:"license"`
	Phone       string    `json:"phone"`
	Active      bool      `json:"active"`
	Blacklisted bool      `json:"blacklisted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
