package invoices

import (
	"sort"
	"strings"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
)

// Clients groups invoices by client. A client is keyed by email when present,
// otherwise by name. PaidStatus is true when every invoice of the client is paid.
func Clients(invoices []ledger.Invoice) []Client {
	byKey := make(map[string]*Client)
	order := make([]string, 0)
	for _, inv := range invoices {
		key := strings.ToLower(strings.TrimSpace(inv.ClientEmail))
		if key == "" {
			key = "name:" + strings.ToLower(strings.TrimSpace(inv.ClientName))
		}
		c, ok := byKey[key]
		if !ok {
			c = &Client{Name: inv.ClientName, Email: inv.ClientEmail, Phone: inv.ClientPhone, PaidStatus: true}
			byKey[key] = c
			order = append(order, key)
		}
		if c.Phone == "" {
			c.Phone = inv.ClientPhone
		}
		c.InvoiceCount++
		c.Billed += inv.Total
		if inv.Status != ledger.StatusPaid {
			c.PaidStatus = false
		}
	}
	out := make([]Client, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
