package reports

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

type fakeSource struct {
	mu       sync.Mutex
	invoices []ledger.Invoice
	calls    int
}

func (f *fakeSource) Snapshot(ctx context.Context, accountID string) ([]ledger.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]ledger.Invoice, len(f.invoices))
	copy(out, f.invoices)
	return out, nil
}

func (f *fakeSource) Get(ctx context.Context, accountID, id string) (*ledger.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.ID == id {
			return &inv, nil
		}
	}
	return nil, invoices.ErrInvoiceNotFound
}

func (f *fakeSource) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, inv := range f.invoices {
		if inv.ID == id {
			f.invoices = append(f.invoices[:i], f.invoices[i+1:]...)
			return
		}
	}
}

func (f *fakeSource) snapshotCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testNow = time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)

func invoice(id, client string, status ledger.Status, created time.Time, qty, price float64) ledger.Invoice {
	return ledger.Recompute(ledger.Invoice{
		ID:         id,
		ClientName: client,
		Items:      []ledger.LineItem{{Description: "Work", Quantity: qty, UnitPrice: price}},
		Status:     status,
		CreatedAt:  created,
	})
}

func fixtures() []ledger.Invoice {
	return []ledger.Invoice{
		invoice("inv-1", "Acme", ledger.StatusPaid, time.Date(2025, time.March, 2, 9, 0, 0, 0, time.UTC), 2, 500),
		invoice("inv-2", "Beta", ledger.StatusSent, time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC), 1, 200),
		invoice("inv-3", "Acme", ledger.StatusDraft, time.Date(2025, time.March, 9, 9, 0, 0, 0, time.UTC), 3, 10),
		invoice("inv-4", "Gamma", ledger.StatusPaid, time.Date(2025, time.February, 27, 9, 0, 0, 0, time.UTC), 1, 700),
	}
}

func newTestService(t *testing.T, source InvoiceSource) *Service {
	svc, _ := newTestServiceWithRedis(t, source)
	return svc
}

func newTestServiceWithRedis(t *testing.T, source InvoiceSource) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(source, ServiceConfig{
		Cache:  NewCache(client, time.Minute),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return testNow },
	})
	return svc, mr
}

func TestDashboardCurrentMonth(t *testing.T) {
	source := &fakeSource{invoices: fixtures()}
	svc := newTestService(t, source)
	ctx := context.Background()

	w, err := svc.ParseWindow("")
	require.NoError(t, err)
	require.Equal(t, "2025-03", w.String())

	dash, err := svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	require.Equal(t, 3, dash.Stats.InvoiceCount)
	require.Equal(t, 1000.0, dash.Stats.TotalRevenue)
	require.Equal(t, 1230.0, dash.Stats.TotalSales)
	require.Equal(t, 2, dash.Stats.TotalUnpaid)
	require.Equal(t, 1, dash.Stats.PaidCount)
	require.Equal(t, 1, dash.Stats.PendingCount)
	require.Equal(t, 6.0, dash.Stats.TotalQuantity)
	require.Len(t, dash.Chart, 3)
	require.Equal(t, 1000.0, dash.Chart[0].Paid)
	require.Equal(t, 200.0, dash.Chart[1].Unpaid)
}

func TestDashboardIsCachedUntilBump(t *testing.T) {
	source := &fakeSource{invoices: fixtures()}
	svc := newTestService(t, source)
	ctx := context.Background()
	w := svc.CurrentWindow()

	first, err := svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	second, err := svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.snapshotCalls())

	source.remove("inv-1")
	svc.InvoiceChanged(ctx, invoices.Event{Kind: invoices.EventDeleted, AccountID: "acc"})

	third, err := svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	require.Equal(t, 2, source.snapshotCalls())
	require.Equal(t, 2, third.Stats.InvoiceCount)
	require.Equal(t, 0.0, third.Stats.TotalRevenue)
	for _, p := range third.Chart {
		require.NotEqual(t, "inv-1", p.InvoiceID)
	}
}

func TestDeleteDuringRedisOutageIsNotServedStale(t *testing.T) {
	source := &fakeSource{invoices: fixtures()}
	svc, mr := newTestServiceWithRedis(t, source)
	ctx := context.Background()
	w := svc.CurrentWindow()

	before, err := svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	require.Equal(t, 3, before.Stats.InvoiceCount)

	mr.Close()
	source.remove("inv-1")
	svc.InvoiceChanged(ctx, invoices.Event{Kind: invoices.EventDeleted, AccountID: "acc"})

	during, err := svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	require.Equal(t, 2, during.Stats.InvoiceCount)

	require.NoError(t, mr.Restart())
	after, err := svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	require.Equal(t, 2, after.Stats.InvoiceCount)
	require.Equal(t, 0.0, after.Stats.TotalRevenue)
	for _, p := range after.Chart {
		require.NotEqual(t, "inv-1", p.InvoiceID)
	}

	calls := source.snapshotCalls()
	_, err = svc.Dashboard(ctx, "acc", w)
	require.NoError(t, err)
	require.Equal(t, calls, source.snapshotCalls(), "cache resumes once the bump lands")
}

func TestCacheIsPerAccount(t *testing.T) {
	source := &fakeSource{invoices: fixtures()}
	svc := newTestService(t, source)
	ctx := context.Background()
	w := svc.CurrentWindow()

	_, err := svc.Dashboard(ctx, "acc-a", w)
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx, "acc-b", w)
	require.NoError(t, err)
	require.Equal(t, 2, source.snapshotCalls())

	svc.InvoiceChanged(ctx, invoices.Event{AccountID: "acc-a"})
	_, err = svc.Dashboard(ctx, "acc-b", w)
	require.NoError(t, err)
	require.Equal(t, 2, source.snapshotCalls())
}

func TestReportSelectedMonthAndTrend(t *testing.T) {
	svc := newTestService(t, &fakeSource{invoices: fixtures()})

	w, err := svc.ParseWindow("2025-02")
	require.NoError(t, err)
	report, err := svc.Report(context.Background(), "acc", w)
	require.NoError(t, err)
	require.Equal(t, "2025-02", report.Stats.Window)
	require.Equal(t, 1, report.Stats.InvoiceCount)
	require.Equal(t, 700.0, report.Stats.TotalRevenue)
	require.Equal(t, []ledger.TrendPoint{
		{Month: "2025-02", Revenue: 700},
		{Month: "2025-03", Revenue: 1000},
	}, report.Trend)
}

func TestParseWindowRejectsGarbage(t *testing.T) {
	svc := newTestService(t, &fakeSource{})
	_, err := svc.ParseWindow("2025-13")
	require.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.ParseWindow("march")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestReceipts(t *testing.T) {
	svc := newTestService(t, &fakeSource{invoices: fixtures()})
	ctx := context.Background()

	all, err := svc.Receipts(ctx, "acc", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	acme, err := svc.Receipts(ctx, "acc", "ACME", 0)
	require.NoError(t, err)
	require.Len(t, acme, 1)
	require.Equal(t, "inv-1", acme[0].ID)

	one, err := svc.Receipts(ctx, "acc", "", 1)
	require.NoError(t, err)
	require.Len(t, one, 1)

	inv, err := svc.Receipt(ctx, "acc", "inv-4")
	require.NoError(t, err)
	require.Equal(t, 700.0, inv.Total)

	_, err = svc.Receipt(ctx, "acc", "inv-2")
	require.ErrorIs(t, err, ErrNotReceipt)
	_, err = svc.Receipt(ctx, "acc", "missing")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceWithoutRedis(t *testing.T) {
	source := &fakeSource{invoices: fixtures()}
	svc := NewService(source, ServiceConfig{Now: func() time.Time { return testNow }})
	ctx := context.Background()

	dash, err := svc.Dashboard(ctx, "acc", svc.CurrentWindow())
	require.NoError(t, err)
	require.Equal(t, 3, dash.Stats.InvoiceCount)
	_, err = svc.Dashboard(ctx, "acc", svc.CurrentWindow())
	require.NoError(t, err)
	require.Equal(t, 2, source.snapshotCalls())
	svc.InvoiceChanged(ctx, invoices.Event{AccountID: "acc"})
}

func TestCacheVersionInitialises(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	ver, err := cache.Version(ctx, "acc")
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)
	require.NoError(t, cache.Bump(ctx, "acc"))
	key, err := cache.BuildKey(ctx, "acc", "dashboard", "2025-03")
	require.NoError(t, err)
	require.Equal(t, "reports:acc:dashboard:2025-03:2", key)
}
