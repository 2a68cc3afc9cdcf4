package ledger

import (
	"fmt"
	"strings"
	"time"
)

// MarkPaid moves a non-paid invoice to paid. A paid invoice is returned
// unchanged together with ErrAlreadyPaid.
func MarkPaid(inv Invoice) (Invoice, error) {
	if inv.Status == StatusPaid {
		return inv, ErrAlreadyPaid
	}
	inv.Status = StatusPaid
	return inv, nil
}

// Send moves a draft invoice to sent.
func Send(inv Invoice) (Invoice, error) {
	if inv.Status != StatusDraft {
		return inv, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, StatusSent)
	}
	inv.Status = StatusSent
	return inv, nil
}

// IsReceipt reports whether inv is eligible to be shown as a receipt.
func IsReceipt(inv Invoice) bool {
	return inv.Status == StatusPaid
}

// Receipts returns the paid subset of invoices, preserving order.
func Receipts(invoices []Invoice) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if IsReceipt(inv) {
			out = append(out, inv)
		}
	}
	return out
}

// IsOverdue reports whether a sent invoice's due date lies before the day of now.
func IsOverdue(inv Invoice, now time.Time) bool {
	if inv.Status != StatusSent || inv.DueDate == nil {
		return false
	}
	// Due dates are calendar dates; read them as stored, not shifted into now's zone.
	due := *inv.DueDate
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return dueDay.Before(today)
}

// DisplayStatus returns the status shown to users. Overdue is derived, never stored.
func DisplayStatus(inv Invoice, now time.Time) Status {
	if IsOverdue(inv, now) {
		return StatusOverdue
	}
	return inv.Status
}

// SearchReceipts returns up to limit paid invoices whose client name, client
// email or id contains query, ignoring case. An empty query matches all.
func SearchReceipts(invoices []Invoice, query string, limit int) []Invoice {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Invoice, 0, limit)
	for _, inv := range invoices {
		if len(out) == limit {
			break
		}
		if !IsReceipt(inv) {
			continue
		}
		if q == "" ||
			strings.Contains(strings.ToLower(inv.ClientName), q) ||
			strings.Contains(strings.ToLower(inv.ClientEmail), q) ||
			strings.Contains(strings.ToLower(inv.ID), q) {
			out = append(out, inv)
		}
	}
	return out
}
