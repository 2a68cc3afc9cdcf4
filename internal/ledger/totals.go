package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LineTotal returns quantity x unitPrice without rounding.
func LineTotal(quantity, unitPrice float64) float64 {
	return quantity * unitPrice
}

// ComputeItems returns a copy of items with every Total recomputed, plus their sum.
func ComputeItems(items []LineItem) ([]LineItem, float64) {
	out := make([]LineItem, len(items))
	var subtotal float64
	for i, it := range items {
		it.Total = LineTotal(it.Quantity, it.UnitPrice)
		out[i] = it
		subtotal += it.Total
	}
	return out, subtotal
}

// ResolveTotal combines the flat surcharge and reduction, flooring at zero.
func ResolveTotal(subtotal, tax, discount float64) float64 {
	return math.Max(0, subtotal+tax-discount)
}

// Recompute derives item totals, subtotal and total from the invoice inputs.
// Recomputed values always replace stored ones.
func Recompute(inv Invoice) Invoice {
	inv.Items, inv.Subtotal = ComputeItems(inv.Items)
	inv.Total = ResolveTotal(inv.Subtotal, inv.Tax, inv.Discount)
	return inv
}

// Discrepancy describes a stored value that differs from its recomputed value.
type Discrepancy struct {
	Field    string  `json:"field"`
	Stored   float64 `json:"stored"`
	Computed float64 `json:"computed"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: stored %v, computed %v", d.Field, d.Stored, d.Computed)
}

const tolerance = 1e-9

// Reconcile compares the stored totals of inv with freshly computed ones.
func Reconcile(inv Invoice) []Discrepancy {
	fresh := Recompute(inv)
	var out []Discrepancy
	for i := range inv.Items {
		if differs(inv.Items[i].Total, fresh.Items[i].Total) {
			out = append(out, Discrepancy{
				Field:    fmt.Sprintf("items[%d].total", i),
				Stored:   inv.Items[i].Total,
				Computed: fresh.Items[i].Total,
			})
		}
	}
	if differs(inv.Subtotal, fresh.Subtotal) {
		out = append(out, Discrepancy{Field: "subtotal", Stored: inv.Subtotal, Computed: fresh.Subtotal})
	}
	if differs(inv.Total, fresh.Total) {
		out = append(out, Discrepancy{Field: "total", Stored: inv.Total, Computed: fresh.Total})
	}
	return out
}

func differs(a, b float64) bool {
	return math.Abs(a-b) > tolerance
}

// Coerce converts live form input to a number; blank or malformed input counts as zero.
func Coerce(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
