package inventory

import "strings"

// Summarize counts products and units and values the stock.
func Summarize(items []Item) Summary {
	var sum Summary
	for _, it := range items {
		sum.Products++
		sum.Units += it.Stock
		sum.Value += it.Value()
	}
	return sum
}

// Search filters items whose name, SKU or category contains q, ignoring case.
func Search(items []Item, q string) []Item {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) ||
			strings.Contains(strings.ToLower(it.SKU), q) ||
			strings.Contains(strings.ToLower(it.Category), q) {
			out = append(out, it)
		}
	}
	return out
}
