package client

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/users"
)

// DashboardView is the locally computed overview of one month.
type DashboardView struct {
	Account  users.Account
	Currency string
	Stats    ledger.Stats
	Chart    []ledger.ChartPoint
	Overdue  []ledger.Invoice
}

// LoadDashboard fetches invoices and the profile in parallel and aggregates the
// window with the ledger. When ctx ends before both fetches finish, nothing is
// returned but ctx.Err().
func (c *Client) LoadDashboard(ctx context.Context, w ledger.Window) (*DashboardView, error) {
	var (
		invoices []ledger.Invoice
		account  *users.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = c.ListInvoices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		account, err = c.Me(gctx)
		return err
	})
	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}

	for i := range invoices {
		invoices[i] = ledger.Recompute(invoices[i])
	}
	view := &DashboardView{
		Account:  *account,
		Currency: c.session.Currency(),
		Stats:    ledger.Aggregate(invoices, w),
		Chart:    ledger.Chart(invoices, w, ledger.DefaultChartLayout),
		Overdue:  make([]ledger.Invoice, 0),
	}
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	now := c.now().In(loc)
	for _, inv := range invoices {
		if inv.Status == ledger.StatusOverdue || ledger.IsOverdue(inv, now) {
			view.Overdue = append(view.Overdue, inv)
		}
	}
	return view, nil
}
