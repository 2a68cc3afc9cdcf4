// Package ledger holds the invoice lifecycle and derived-totals engine shared by
// every invoice view: line totals, payable totals, status transitions, the
// receipt predicate and calendar-month aggregation. Everything here is pure.
package ledger

import (
	"errors"
	"time"
)

// Status enumerates invoice statuses.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

var (
	// ErrAlreadyPaid is returned when marking a paid invoice paid again.
	ErrAlreadyPaid = errors.New("ledger: invoice already paid")
	// ErrInvalidTransition indicates a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("ledger: invalid status transition")
	// ErrInvalidWindow indicates a malformed year-month selector.
	ErrInvalidWindow = errors.New("ledger: invalid window")
)

// LineItem is one billable entry of an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// Invoice is a billable document with computed totals and a payment status.
type Invoice struct {
	ID          string     `json:"id"`
	ClientName  string     `json:"clientName"`
	ClientEmail string     `json:"clientEmail,omitempty"`
	ClientPhone string     `json:"clientPhone,omitempty"`
	Items       []LineItem `json:"items"`
	Tax         float64    `json:"tax"`
	Discount    float64    `json:"discount"`
	Subtotal    float64    `json:"subtotal"`
	Total       float64    `json:"total"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Notes       string     `json:"notes,omitempty"`
}

// Quantity sums the quantity of every line item.
func (inv Invoice) Quantity() float64 {
	var qty float64
	for _, it := range inv.Items {
		qty += it.Quantity
	}
	return qty
}
