package invoices

import (
	"fmt"
	"time"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// ErrInvoiceNotFound indicates the invoice does not exist for the account.
var ErrInvoiceNotFound = fmt.Errorf("invoices: invoice not found: %w", httpx.ErrNotFound)

// ErrStatusChanged reports that a status update lost a race with another writer.
var ErrStatusChanged = fmt.Errorf("invoices: status changed concurrently: %w", httpx.ErrConflict)

// ItemInput is one line item as submitted by the user.
type ItemInput struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
}

// CreateInvoiceInput is the body of POST /invoices. Totals are never accepted
// from the caller; they are derived from the items.
type CreateInvoiceInput struct {
	ClientName  string      `json:"clientName" validate:"required"`
	ClientEmail string      `json:"clientEmail,omitempty" validate:"omitempty,email"`
	ClientPhone string      `json:"clientPhone,omitempty"`
	Items       []ItemInput `json:"items" validate:"required,min=1,dive"`
	Tax         float64     `json:"tax" validate:"gte=0"`
	Discount    float64     `json:"discount" validate:"gte=0"`
	DueDate     *Date       `json:"dueDate,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// EventKind enumerates invoice lifecycle events.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventSent    EventKind = "sent"
	EventPaid    EventKind = "paid"
	EventDeleted EventKind = "deleted"
)

// Event is published after every successful invoice mutation.
type Event struct {
	Kind      EventKind
	AccountID string
	Invoice   ledger.Invoice
	At        time.Time
}

// Client is a customer derived from the invoices issued to them.
type Client struct {
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	InvoiceCount int     `json:"invoiceCount"`
	Billed       float64 `json:"billed"`
	PaidStatus   bool    `json:"paid_status"`
}
