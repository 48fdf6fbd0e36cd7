package plans

import "time"

// Plan models a rental plan. AllowedCategories restricts which vehicle
// categories a contract on this plan may use.
type Plan struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	AllowedCategories []string  `json:"allowed_categories"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Allows reports whether the plan admits the given vehicle category.
func (p Plan) Allows(category string) bool {
	for _, c := range p.AllowedCategories {
		if c == category {
			return true
		}
	}
	return false
}
