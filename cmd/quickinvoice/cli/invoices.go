package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	urfave "github.com/urfave/cli/v2"

	"github.com/quickinvoice/quickinvoice/internal/client"
	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/ledger"
)

func invoicesCommand() *urfave.Command {
	return &urfave.Command{
		Name:    "invoices",
		Aliases: []string{"inv"},
		Usage:   "list, create and settle invoices",
		Subcommands: []*urfave.Command{
			{
				Name:  "list",
				Usage: "list invoices, newest first",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "status", Usage: "only show draft, sent, paid or overdue"},
				},
				Action: listInvoices,
			},
			{
				Name:      "show",
				Usage:     "show one invoice with its line items",
				ArgsUsage: "ID",
				Action:    showInvoice,
			},
			{
				Name:  "create",
				Usage: "create a draft invoice",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "client", Usage: "client name", Required: true},
					&urfave.StringFlag{Name: "email", Usage: "client email"},
					&urfave.StringFlag{Name: "phone", Usage: "client phone"},
					&urfave.StringSliceFlag{Name: "item", Usage: "line item as DESCRIPTION:QTY:UNIT_PRICE (repeatable)", Required: true},
					&urfave.Float64Flag{Name: "tax", Usage: "tax amount"},
					&urfave.Float64Flag{Name: "discount", Usage: "discount amount"},
					&urfave.StringFlag{Name: "due", Usage: "due date YYYY-MM-DD"},
					&urfave.StringFlag{Name: "notes", Usage: "free-form notes"},
				},
				Action: createInvoice,
			},
			{
				Name:      "pay",
				Usage:     "mark an invoice paid",
				ArgsUsage: "ID",
				Action:    payInvoice,
			},
			{
				Name:      "send",
				Usage:     "send a draft invoice to its client",
				ArgsUsage: "ID",
				Action:    sendInvoice,
			},
			{
				Name:      "delete",
				Usage:     "delete an invoice",
				ArgsUsage: "ID",
				Action:    deleteInvoice,
			},
		},
	}
}

func listInvoices(c *urfave.Context) error {
	api, err := apiClient(c)
	if err != nil {
		return err
	}
	list, err := api.ListInvoices(c.Context)
	if err != nil {
		return err
	}
	if status := strings.ToLower(c.String("status")); status != "" {
		filtered := list[:0]
		for _, inv := range list {
			if string(inv.Status) == status {
				filtered = append(filtered, inv)
			}
		}
		list = filtered
	}
	if c.Bool(flagJSON) {
		return writeJSON(c.App.Writer, list)
	}
	printInvoiceTable(c.App.Writer, api.Session(), list)
	return nil
}

func showInvoice(c *urfave.Context) error {
	id, err := requireArg(c, "ID")
	if err != nil {
		return err
	}
	api, err := apiClient(c)
	if err != nil {
		return err
	}
	inv, err := api.GetInvoice(c.Context, id)
	if err != nil {
		return err
	}
	if c.Bool(flagJSON) {
		return writeJSON(c.App.Writer, inv)
	}
	printInvoice(c.App.Writer, api.Session(), *inv)
	return nil
}

func createInvoice(c *urfave.Context) error {
	input := invoices.CreateInvoiceInput{
		ClientName:  c.String("client"),
		ClientEmail: c.String("email"),
		ClientPhone: c.String("phone"),
		Tax:         c.Float64("tax"),
		Discount:    c.Float64("discount"),
		Notes:       c.String("notes"),
	}
	for _, raw := range c.StringSlice("item") {
		item, err := parseItem(raw)
		if err != nil {
			return err
		}
		input.Items = append(input.Items, item)
	}
	if raw := c.String("due"); raw != "" {
		due, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("due must be YYYY-MM-DD: %w", err)
		}
		input.DueDate = &invoices.Date{Time: due}
	}

	api, err := apiClient(c)
	if err != nil {
		return err
	}
	inv, err := api.CreateInvoice(c.Context, input)
	if err != nil {
		return err
	}
	if c.Bool(flagJSON) {
		return writeJSON(c.App.Writer, inv)
	}
	fmt.Fprintf(c.App.Writer, "created invoice %s for %s (%s)\n", inv.ID, inv.ClientName, api.Session().Format(inv.Total))
	return nil
}

func payInvoice(c *urfave.Context) error {
	id, err := requireArg(c, "ID")
	if err != nil {
		return err
	}
	api, err := apiClient(c)
	if err != nil {
		return err
	}
	inv, err := api.MarkPaid(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "invoice %s is %s\n", inv.ID, inv.Status)
	return nil
}

func sendInvoice(c *urfave.Context) error {
	id, err := requireArg(c, "ID")
	if err != nil {
		return err
	}
	api, err := apiClient(c)
	if err != nil {
		return err
	}
	inv, err := api.SendInvoice(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "invoice %s is %s\n", inv.ID, inv.Status)
	return nil
}

func deleteInvoice(c *urfave.Context) error {
	id, err := requireArg(c, "ID")
	if err != nil {
		return err
	}
	api, err := apiClient(c)
	if err != nil {
		return err
	}
	if err := api.DeleteInvoice(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted invoice %s\n", id)
	return nil
}

// parseItem reads DESCRIPTION:QTY:UNIT_PRICE. The description may itself contain colons.
func parseItem(raw string) (invoices.ItemInput, error) {
	priceAt := strings.LastIndex(raw, ":")
	if priceAt < 0 {
		return invoices.ItemInput{}, fmt.Errorf("item %q: want DESCRIPTION:QTY:UNIT_PRICE", raw)
	}
	qtyAt := strings.LastIndex(raw[:priceAt], ":")
	if qtyAt < 0 {
		return invoices.ItemInput{}, fmt.Errorf("item %q: want DESCRIPTION:QTY:UNIT_PRICE", raw)
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(raw[qtyAt+1:priceAt]), 64)
	if err != nil {
		return invoices.ItemInput{}, fmt.Errorf("item %q: quantity: %w", raw, err)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(raw[priceAt+1:]), 64)
	if err != nil {
		return invoices.ItemInput{}, fmt.Errorf("item %q: unit price: %w", raw, err)
	}
	return invoices.ItemInput{
		Description: strings.TrimSpace(raw[:qtyAt]),
		Quantity:    qty,
		UnitPrice:   price,
	}, nil
}

func statusLabel(s ledger.Status) string {
	switch s {
	case ledger.StatusPaid:
		return color.GreenString(string(s))
	case ledger.StatusOverdue:
		return color.RedString(string(s))
	case ledger.StatusSent:
		return color.YellowString(string(s))
	}
	return string(s)
}

func printInvoiceTable(w io.Writer, session *client.Session, list []ledger.Invoice) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no invoices")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLIENT\tTOTAL\tSTATUS\tDUE")
	for _, inv := range list {
		due := "-"
		if inv.DueDate != nil {
			due = inv.DueDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", inv.ID, inv.ClientName, session.Format(inv.Total), statusLabel(inv.Status), due)
	}
	_ = tw.Flush()
}

func printInvoice(w io.Writer, session *client.Session, inv ledger.Invoice) {
	fmt.Fprintf(w, "Invoice %s  %s\n", inv.ID, statusLabel(inv.Status))
	fmt.Fprintf(w, "Client:   %s", inv.ClientName)
	if inv.ClientEmail != "" {
		fmt.Fprintf(w, " <%s>", inv.ClientEmail)
	}
	fmt.Fprintln(w)
	if inv.DueDate != nil {
		fmt.Fprintf(w, "Due:      %s (%s)\n", inv.DueDate.Format("2006-01-02"), humanize.Time(*inv.DueDate))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DESCRIPTION\tQTY\tUNIT PRICE\tTOTAL")
	for _, item := range inv.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.Description,
			strconv.FormatFloat(item.Quantity, 'f', -1, 64), session.Format(item.UnitPrice), session.Format(item.Total))
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nSubtotal: %s\n", session.Format(inv.Subtotal))
	if inv.Tax != 0 {
		fmt.Fprintf(w, "Tax:      %s\n", session.Format(inv.Tax))
	}
	if inv.Discount != 0 {
		fmt.Fprintf(w, "Discount: -%s\n", session.Format(inv.Discount))
	}
	fmt.Fprintf(w, "Total:    %s\n", session.Format(inv.Total))
	if inv.Notes != "" {
		fmt.Fprintf(w, "\n%s\n", inv.Notes)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
