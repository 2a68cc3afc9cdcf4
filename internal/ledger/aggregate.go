package ledger

import (
	"sort"
	"time"
)

// Stats summarises the invoices of one window.
type Stats struct {
	Window        string  `json:"window"`
	InvoiceCount  int     `json:"invoiceCount"`
	TotalRevenue  float64 `json:"totalRevenue"`
	TotalUnpaid   int     `json:"totalUnpaid"`
	TotalSales    float64 `json:"totalSales"`
	TotalQuantity float64 `json:"totalQuantity"`
	PaidCount     int     `json:"paidCount"`
	PendingCount  int     `json:"pendingCount"`
}

// Aggregate computes the window statistics. Missing items or amounts count as zero.
func Aggregate(invoices []Invoice, w Window) Stats {
	stats := Stats{Window: w.String()}
	for _, inv := range InWindow(invoices, w) {
		stats.InvoiceCount++
		stats.TotalSales += inv.Total
		stats.TotalQuantity += inv.Quantity()
		switch inv.Status {
		case StatusPaid:
			stats.TotalRevenue += inv.Total
			stats.PaidCount++
		case StatusSent, StatusOverdue:
			stats.PendingCount++
		}
		if inv.Status != StatusPaid {
			stats.TotalUnpaid++
		}
	}
	return stats
}

// ChartPoint is one bar of the paid/unpaid chart. There is one point per invoice.
type ChartPoint struct {
	InvoiceID string  `json:"invoiceId"`
	Label     string  `json:"label"`
	Paid      float64 `json:"paid"`
	Unpaid    float64 `json:"unpaid"`
}

// DefaultChartLayout labels chart points by creation date.
const DefaultChartLayout = "2006-01-02"

// Chart builds one point per invoice in w, split into paid and unpaid amounts.
func Chart(invoices []Invoice, w Window, layout string) []ChartPoint {
	if layout == "" {
		layout = DefaultChartLayout
	}
	in := InWindow(invoices, w)
	out := make([]ChartPoint, 0, len(in))
	for _, inv := range in {
		p := ChartPoint{InvoiceID: inv.ID, Label: inv.CreatedAt.In(w.loc()).Format(layout)}
		if inv.Status == StatusPaid {
			p.Paid = inv.Total
		} else {
			p.Unpaid = inv.Total
		}
		out = append(out, p)
	}
	return out
}

// TrendPoint is the paid revenue of one month.
type TrendPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// RevenueTrend groups paid revenue by calendar month, oldest first.
func RevenueTrend(invoices []Invoice, loc *time.Location) []TrendPoint {
	byMonth := make(map[string]float64)
	for _, inv := range invoices {
		if inv.Status != StatusPaid {
			continue
		}
		byMonth[WindowOf(inv.CreatedAt, loc).String()] += inv.Total
	}
	out := make([]TrendPoint, 0, len(byMonth))
	for month, revenue := range byMonth {
		out = append(out, TrendPoint{Month: month, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
