// Package reports serves the read views derived from an account's invoices:
// the monthly dashboard, the report page with its revenue trend, and receipts.
package reports

import (
	"fmt"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// ErrNotReceipt indicates the invoice exists but has not been paid.
var ErrNotReceipt = fmt.Errorf("reports: invoice is not a receipt: %w", httpx.ErrNotFound)

// Dashboard is the current-month overview.
type Dashboard struct {
	Stats ledger.Stats        `json:"stats"`
	Chart []ledger.ChartPoint `json:"chart"`
}

// Report is the statistics of a selected month plus the paid revenue history.
type Report struct {
	Stats ledger.Stats        `json:"stats"`
	Trend []ledger.TrendPoint `json:"trend"`
}
