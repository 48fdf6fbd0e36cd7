package billing

import (
	"fmt"
	"time"
)

// InvoiceStatus is persisted in the original pt-BR wire form.
type InvoiceStatus string

const (
	StatusPending  InvoiceStatus = "PENDENTE"
	StatusPaid     InvoiceStatus = "PAGA"
	StatusOverdue  InvoiceStatus = "ATRASADA"
	StatusCanceled InvoiceStatus = "CANCELADA"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCanceled:
		return true
	}
	return false
}

// Invoice is one month's billing obligation derived from an active contract.
type Invoice struct {
	ID             int64         `json:"id"`
	ContractID     int64         `json:"contract_id"`
	ReferenceMonth string        `json:"reference_month"`
	DueDate        time.Time     `json:"due_date"`
	Amount         float64       `json:"amount"`
	Status         InvoiceStatus `json:"status"`
	PaymentDate    *time.Time    `json:"payment_date,omitempty"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	DaysLate       int           `json:"days_late"`
	LateFee        float64       `json:"late_fee"`
	Observations   string        `json:"observations,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ListFilters narrows invoice listings.
type ListFilters struct {
	Status         InvoiceStatus
	ContractID     int64
	ReferenceMonth string
	Limit          int
	Offset         int
}

// ReferenceMonthOf formats t as the YYYY-MM billing period key.
func ReferenceMonthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// DueDateFor computes the due date of an invoice in the given reference
// month. A billing day past the end of the month clamps to the last day,
// never rolling into the next month (day 31 in February yields Feb 28/29).
func DueDateFor(referenceMonth string, billingDay int) (time.Time, error) {
	ref, err := time.Parse("2006-01", referenceMonth)
	if err != nil {
		return time.Time{}, fmt.Errorf("billing: bad reference month %q: %w", referenceMonth, err)
	}
	lastDay := time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := billingDay
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(ref.Year(), ref.Month(), day, 0, 0, 0, 0, time.UTC), nil
}

// DaysLate computes whole late days between due date and payment, never
// negative. Both sides are truncated to midnight so partial days within the
// due date itself do not count.
func DaysLate(dueDate, paymentDate time.Time) int {
	due := truncateToDay(dueDate)
	paid := truncateToDay(paymentDate)
	days := int(paid.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
