package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
}

func TestComputeItems(t *testing.T) {
	items, subtotal := ComputeItems([]LineItem{
		{Description: "Design", Quantity: 2, UnitPrice: 500},
		{Description: "Hosting", Quantity: 3, UnitPrice: 20, Total: 999},
	})
	require.Len(t, items, 2)
	require.Equal(t, 1000.0, items[0].Total)
	require.Equal(t, 60.0, items[1].Total)
	require.Equal(t, 1060.0, subtotal)
}

func TestComputeItemsDoesNotMutateInput(t *testing.T) {
	in := []LineItem{{Description: "A", Quantity: 1, UnitPrice: 5, Total: 42}}
	_, _ = ComputeItems(in)
	require.Equal(t, 42.0, in[0].Total)
}

func TestResolveTotal(t *testing.T) {
	cases := []struct {
		name                    string
		subtotal, tax, discount float64
		want                    float64
	}{
		{"plain", 1000, 50, 0, 1050},
		{"discounted", 1000, 0, 250, 750},
		{"clamped", 1000, 50, 2000, 0},
		{"exactly zero", 100, 0, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ResolveTotal(tc.subtotal, tc.tax, tc.discount))
		})
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	inv := Invoice{
		Items:    []LineItem{{Description: "Design", Quantity: 2, UnitPrice: 500}},
		Tax:      50,
		Subtotal: 12,
		Total:    13,
	}
	once := Recompute(inv)
	twice := Recompute(once)
	require.Equal(t, once, twice)
	require.Equal(t, 1000.0, once.Subtotal)
	require.Equal(t, 1050.0, once.Total)
}

func TestReconcile(t *testing.T) {
	inv := Invoice{
		Items:    []LineItem{{Description: "Design", Quantity: 2, UnitPrice: 500, Total: 900}},
		Subtotal: 900,
		Total:    900,
	}
	diffs := Reconcile(inv)
	require.Len(t, diffs, 3)
	require.Equal(t, "items[0].total", diffs[0].Field)
	require.Equal(t, 1000.0, diffs[0].Computed)

	require.Empty(t, Reconcile(Recompute(inv)))
}

func TestCoerce(t *testing.T) {
	require.Equal(t, 0.0, Coerce(""))
	require.Equal(t, 0.0, Coerce("abc"))
	require.Equal(t, 0.0, Coerce("NaN"))
	require.Equal(t, 12.5, Coerce(" 12.5 "))
}

func TestMarkPaid(t *testing.T) {
	for _, status := range []Status{StatusDraft, StatusSent, StatusOverdue} {
		inv, err := MarkPaid(Invoice{Status: status})
		require.NoError(t, err)
		require.Equal(t, StatusPaid, inv.Status)
	}

	paid := Recompute(Invoice{
		Status: StatusPaid,
		Items:  []LineItem{{Description: "Design", Quantity: 2, UnitPrice: 500}},
		Tax:    50,
	})
	again, err := MarkPaid(paid)
	require.ErrorIs(t, err, ErrAlreadyPaid)
	require.Equal(t, paid, again)
}

func TestSend(t *testing.T) {
	inv, err := Send(Invoice{Status: StatusDraft})
	require.NoError(t, err)
	require.Equal(t, StatusSent, inv.Status)

	_, err = Send(Invoice{Status: StatusPaid})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReceipts(t *testing.T) {
	invoices := []Invoice{
		{ID: "a", Status: StatusDraft},
		{ID: "b", Status: StatusPaid},
		{ID: "c", Status: StatusSent},
		{ID: "d", Status: StatusOverdue},
		{ID: "e", Status: StatusPaid},
	}
	got := Receipts(invoices)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].ID)
	require.Equal(t, "e", got[1].ID)
	for _, inv := range invoices {
		require.Equal(t, inv.Status == StatusPaid, IsReceipt(inv))
	}
}

func TestSearchReceipts(t *testing.T) {
	invoices := []Invoice{
		{ID: "inv-1", ClientName: "Ada Lovelace", Status: StatusPaid},
		{ID: "inv-2", ClientName: "Grace Hopper", ClientEmail: "grace@navy.mil", Status: StatusPaid},
		{ID: "inv-3", ClientName: "Ada Draft", Status: StatusDraft},
	}
	require.Len(t, SearchReceipts(invoices, "", 0), 2)
	got := SearchReceipts(invoices, "ADA", 0)
	require.Len(t, got, 1)
	require.Equal(t, "inv-1", got[0].ID)
	require.Len(t, SearchReceipts(invoices, "navy", 0), 1)
	require.Len(t, SearchReceipts(invoices, "inv-", 1), 1)
}

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	laterToday := now.Add(5 * time.Hour)

	require.Equal(t, StatusOverdue, DisplayStatus(Invoice{Status: StatusSent, DueDate: &yesterday}, now))
	require.Equal(t, StatusSent, DisplayStatus(Invoice{Status: StatusSent, DueDate: &laterToday}, now))
	require.Equal(t, StatusSent, DisplayStatus(Invoice{Status: StatusSent}, now))
	require.Equal(t, StatusDraft, DisplayStatus(Invoice{Status: StatusDraft, DueDate: &yesterday}, now))
	require.Equal(t, StatusPaid, DisplayStatus(Invoice{Status: StatusPaid, DueDate: &yesterday}, now))
}

func TestOverdueReadsDueDateAsCalendarDate(t *testing.T) {
	west := time.FixedZone("UTC-5", -5*60*60)
	due := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	inv := Invoice{Status: StatusSent, DueDate: &due}

	require.False(t, IsOverdue(inv, time.Date(2025, time.March, 15, 20, 0, 0, 0, west)))
	require.True(t, IsOverdue(inv, time.Date(2025, time.March, 16, 0, 30, 0, 0, west)))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2025-03", nil)
	require.NoError(t, err)
	require.Equal(t, 2025, w.Year)
	require.Equal(t, time.March, w.Month)
	require.Equal(t, "2025-03", w.String())

	w, err = ParseWindow("2025-3", time.UTC)
	require.NoError(t, err)
	require.Equal(t, "2025-03", w.String())

	for _, raw := range []string{"", "2025", "2025-13", "2025-00", "x-01", "2025-03-01"} {
		_, err := ParseWindow(raw, nil)
		require.ErrorIs(t, err, ErrInvalidWindow, raw)
	}
}

func TestWindowUsesCalendarMonth(t *testing.T) {
	w := Window{Year: 2025, Month: time.March, Location: time.UTC}
	require.True(t, w.Contains(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, w.Contains(time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)))
}

func TestWindowRespectsLocation(t *testing.T) {
	lagos := time.FixedZone("WAT", 60*60)
	// 23:30 UTC on March 31 is already April 1 in Lagos.
	created := time.Date(2025, time.March, 31, 23, 30, 0, 0, time.UTC)
	require.True(t, Window{Year: 2025, Month: time.April, Location: lagos}.Contains(created))
	require.False(t, Window{Year: 2025, Month: time.March, Location: lagos}.Contains(created))
}

func sampleInvoices() []Invoice {
	return []Invoice{
		Recompute(Invoice{ID: "m1", Status: StatusPaid, CreatedAt: at(2025, time.March, 2),
			Items: []LineItem{{Description: "Design", Quantity: 2, UnitPrice: 500}}, Tax: 50}),
		Recompute(Invoice{ID: "m2", Status: StatusSent, CreatedAt: at(2025, time.March, 20),
			Items: []LineItem{{Description: "Logo", Quantity: 1, UnitPrice: 300}}}),
		Recompute(Invoice{ID: "m3", Status: StatusDraft, CreatedAt: at(2025, time.March, 28),
			Items: []LineItem{{Description: "Audit", Quantity: 4, UnitPrice: 25}}, Discount: 500}),
		Recompute(Invoice{ID: "a1", Status: StatusPaid, CreatedAt: at(2025, time.April, 3),
			Items: []LineItem{{Description: "Retainer", Quantity: 1, UnitPrice: 2000}}}),
		{ID: "broken", Status: StatusSent, CreatedAt: at(2025, time.March, 5)},
	}
}

func TestAggregateFiltersByMonth(t *testing.T) {
	w, err := ParseWindow("2025-03", time.UTC)
	require.NoError(t, err)

	stats := Aggregate(sampleInvoices(), w)
	require.Equal(t, "2025-03", stats.Window)
	require.Equal(t, 4, stats.InvoiceCount)
	require.Equal(t, 1050.0, stats.TotalRevenue)
	require.Equal(t, 3, stats.TotalUnpaid)
	require.Equal(t, 1050.0+300.0+0.0, stats.TotalSales)
	require.Equal(t, 7.0, stats.TotalQuantity)
	require.Equal(t, 1, stats.PaidCount)
	require.Equal(t, 2, stats.PendingCount)

	april := Aggregate(sampleInvoices(), Window{Year: 2025, Month: time.April})
	require.Equal(t, 1, april.InvoiceCount)
	require.Equal(t, 2000.0, april.TotalRevenue)
}

func TestAggregateAfterDeletion(t *testing.T) {
	w := Window{Year: 2025, Month: time.March}
	all := sampleInvoices()
	before := Aggregate(all, w)

	remaining := make([]Invoice, 0, len(all))
	for _, inv := range all {
		if inv.ID != "m1" {
			remaining = append(remaining, inv)
		}
	}
	after := Aggregate(remaining, w)
	require.Equal(t, before.InvoiceCount-1, after.InvoiceCount)
	require.Equal(t, before.TotalRevenue-1050, after.TotalRevenue)
}

func TestChartHasOnePointPerInvoice(t *testing.T) {
	w := Window{Year: 2025, Month: time.March}
	points := Chart(sampleInvoices(), w, "")
	require.Len(t, points, 4)
	require.Equal(t, "m1", points[0].InvoiceID)
	require.Equal(t, "2025-03-02", points[0].Label)
	require.Equal(t, 1050.0, points[0].Paid)
	require.Zero(t, points[0].Unpaid)
	require.Equal(t, 300.0, points[1].Unpaid)
	require.Zero(t, points[1].Paid)
}

func TestRevenueTrend(t *testing.T) {
	trend := RevenueTrend(sampleInvoices(), time.UTC)
	require.Equal(t, []TrendPoint{
		{Month: "2025-03", Revenue: 1050},
		{Month: "2025-04", Revenue: 2000},
	}, trend)
}

func TestEndToEndLifecycle(t *testing.T) {
	created := at(2025, time.March, 10)
	inv := Recompute(Invoice{
		ID:         "inv-1",
		ClientName: "Acme",
		Items:      []LineItem{{Description: "Design", Quantity: 2, UnitPrice: 500}},
		Tax:        50,
		Status:     StatusDraft,
		CreatedAt:  created,
	})
	require.Equal(t, 1000.0, inv.Subtotal)
	require.Equal(t, 1050.0, inv.Total)
	require.Empty(t, Receipts([]Invoice{inv}))

	paid, err := MarkPaid(inv)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.Equal(t, []Invoice{paid}, Receipts([]Invoice{paid}))

	stats := Aggregate([]Invoice{paid}, WindowOf(created, time.UTC))
	require.Equal(t, 1050.0, stats.TotalRevenue)
}
