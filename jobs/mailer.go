package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/money"
	"github.com/quickinvoice/quickinvoice/internal/users"
)

// Enqueuer submits invoice email tasks.
type Enqueuer interface {
	EnqueueInvoiceEmail(ctx context.Context, payload InvoiceEmailPayload) error
}

// AccountLookup loads the issuing account.
type AccountLookup interface {
	Me(ctx context.Context, accountID string) (*users.Account, error)
}

// InvoiceMailer composes the email for a sent invoice and queues it.
type InvoiceMailer struct {
	queue    Enqueuer
	accounts AccountLookup
}

// NewInvoiceMailer builds the mailer.
func NewInvoiceMailer(queue Enqueuer, accounts AccountLookup) *InvoiceMailer {
	return &InvoiceMailer{queue: queue, accounts: accounts}
}

// InvoiceSent queues the email of a freshly sent invoice.
func (m *InvoiceMailer) InvoiceSent(ctx context.Context, accountID string, inv ledger.Invoice) error {
	acc, err := m.accounts.Me(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load issuer: %w", err)
	}
	payload := InvoiceEmailPayload{
		AccountID: accountID,
		InvoiceID: inv.ID,
		To:        inv.ClientEmail,
		Subject:   fmt.Sprintf("Invoice from %s", acc.Name),
		Body:      composeInvoiceEmail(acc, inv),
	}
	return m.queue.EnqueueInvoiceEmail(ctx, payload)
}

func composeInvoiceEmail(acc *users.Account, inv ledger.Invoice) string {
	cur := acc.Currency
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", inv.ClientName)
	fmt.Fprintf(&b, "%s has sent you an invoice for %s.\n\n", acc.Name, money.Format(inv.Total, cur))
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "  %s  %v x %s = %s\n", item.Description, item.Quantity,
			money.Format(item.UnitPrice, cur), money.Format(item.Total, cur))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", money.Format(inv.Subtotal, cur))
	if inv.Tax != 0 {
		fmt.Fprintf(&b, "Tax: %s\n", money.Format(inv.Tax, cur))
	}
	if inv.Discount != 0 {
		fmt.Fprintf(&b, "Discount: -%s\n", money.Format(inv.Discount, cur))
	}
	fmt.Fprintf(&b, "Total due: %s\n", money.Format(inv.Total, cur))
	if inv.DueDate != nil {
		fmt.Fprintf(&b, "Due date: %s\n", inv.DueDate.Format("2 January 2006"))
	}
	if acc.Bank.AccountNumber != "" {
		fmt.Fprintf(&b, "\nPay to: %s, %s (%s)\n", acc.Bank.AccountName, acc.Bank.AccountNumber, acc.Bank.BankName)
	}
	if inv.Notes != "" {
		fmt.Fprintf(&b, "\n%s\n", inv.Notes)
	}
	return b.String()
}
