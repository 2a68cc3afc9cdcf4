package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// Plan enumerates subscription plans.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// UsageKind enumerates metered document kinds.
type UsageKind string

const (
	UsageInvoice UsageKind = "invoice"
	UsageReceipt UsageKind = "receipt"
)

// DefaultFreePlanLimit caps each usage kind per calendar month on the free plan.
const DefaultFreePlanLimit = 15

var (
	// ErrLimitExceeded is returned when a free account used up its monthly allowance.
	ErrLimitExceeded = fmt.Errorf("users: limit exceeded, upgrade to pro: %w", httpx.ErrForbidden)
	// ErrUnknownUsageKind indicates a usage kind other than invoice or receipt.
	ErrUnknownUsageKind = fmt.Errorf("users: unknown usage kind: %w", httpx.ErrValidation)
	errAccountNotFound  = fmt.Errorf("users: account not found: %w", httpx.ErrNotFound)
)

// IsLimitExceeded reports whether err signals an exhausted allowance.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}

// BankDetails are the settlement details printed on invoices and receipts.
type BankDetails struct {
	BankName      string `json:"bankName,omitempty" validate:"required,max=120"`
	AccountName   string `json:"accountName,omitempty" validate:"required,max=120"`
	AccountNumber string `json:"accountNumber,omitempty" validate:"required,numeric,min=6,max=34"`
}

// Usage counts documents issued in the current calendar month.
type Usage struct {
	InvoicesThisMonth int `json:"invoicesThisMonth"`
	ReceiptsThisMonth int `json:"receiptsThisMonth"`
}

// Account is the profile of the authenticated business.
type Account struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Plan      Plan        `json:"plan"`
	Currency  string      `json:"currency"`
	Bank      BankDetails `json:"accountDetails"`
	Usage     Usage       `json:"usage"`
	Limit     int         `json:"limit,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// UsageInput records one metered document.
type UsageInput struct {
	AccountID   string
	Kind        UsageKind
	At          time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	// Limit of zero means unlimited.
	Limit int
}
