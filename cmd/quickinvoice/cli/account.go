package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/users"
)

func meCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "me",
		Usage: "show the account profile and this month's usage",
		Action: func(c *urfave.Context) error {
			api, err := apiClient(c)
			if err != nil {
				return err
			}
			acc, err := api.Me(c.Context)
			if err != nil {
				return err
			}
			if c.Bool(flagJSON) {
				return writeJSON(c.App.Writer, acc)
			}
			w := c.App.Writer
			fmt.Fprintf(w, "%s <%s>\n", acc.Name, acc.Email)
			fmt.Fprintf(w, "Plan:     %s\n", acc.Plan)
			fmt.Fprintf(w, "Currency: %s\n", acc.Currency)
			limit := "unlimited"
			if acc.Limit > 0 {
				limit = fmt.Sprintf("%d", acc.Limit)
			}
			fmt.Fprintf(w, "Invoices: %d / %s this month\n", acc.Usage.InvoicesThisMonth, limit)
			fmt.Fprintf(w, "Receipts: %d / %s this month\n", acc.Usage.ReceiptsThisMonth, limit)
			if acc.Bank.AccountNumber != "" {
				fmt.Fprintf(w, "Bank:     %s, %s %s\n", acc.Bank.BankName, acc.Bank.AccountName, acc.Bank.AccountNumber)
			}
			return nil
		},
	}
}

func usageCommand() *urfave.Command {
	return &urfave.Command{
		Name:      "usage",
		Usage:     "record one issued invoice or receipt against the monthly allowance",
		ArgsUsage: "invoice|receipt",
		Action: func(c *urfave.Context) error {
			kind, err := requireArg(c, "kind")
			if err != nil {
				return err
			}
			api, err := apiClient(c)
			if err != nil {
				return err
			}
			usage, err := api.LogUsage(c.Context, users.UsageKind(strings.ToLower(kind)))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "invoices this month: %d, receipts this month: %d\n",
				usage.InvoicesThisMonth, usage.ReceiptsThisMonth)
			return nil
		},
	}
}

func dashboardCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "dashboard",
		Usage: "summarise one calendar month",
		Flags: []urfave.Flag{
			&urfave.StringFlag{Name: "month", Usage: "month as YYYY-MM, defaults to the current month"},
		},
		Action: func(c *urfave.Context) error {
			loc, err := location(c)
			if err != nil {
				return err
			}
			window := ledger.WindowOf(time.Now(), loc)
			if raw := c.String("month"); raw != "" {
				if window, err = ledger.ParseWindow(raw, loc); err != nil {
					return err
				}
			}
			api, err := apiClient(c)
			if err != nil {
				return err
			}
			view, err := api.LoadDashboard(c.Context, window)
			if err != nil {
				return err
			}
			if c.Bool(flagJSON) {
				return writeJSON(c.App.Writer, view)
			}

			session := api.Session()
			w := c.App.Writer
			stats := view.Stats
			fmt.Fprintf(w, "%s  %s\n\n", view.Account.Name, stats.Window)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Invoices\t%d\n", stats.InvoiceCount)
			fmt.Fprintf(tw, "Sales\t%s\n", session.Format(stats.TotalSales))
			fmt.Fprintf(tw, "Revenue\t%s\n", session.Format(stats.TotalRevenue))
			fmt.Fprintf(tw, "Paid\t%d\n", stats.PaidCount)
			fmt.Fprintf(tw, "Pending\t%d\n", stats.PendingCount)
			fmt.Fprintf(tw, "Unpaid\t%d\n", stats.TotalUnpaid)
			_ = tw.Flush()

			if len(view.Overdue) > 0 {
				fmt.Fprintf(w, "\n%s\n", statusLabel(ledger.StatusOverdue))
				printInvoiceTable(w, session, view.Overdue)
			}
			return nil
		},
	}
}

func receiptCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "receipt",
		Usage: "work with receipts of paid invoices",
		Subcommands: []*urfave.Command{
			{
				Name:      "pdf",
				Usage:     "download the receipt PDF of a paid invoice",
				ArgsUsage: "[--out FILE] ID",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, defaults to receipt-ID.pdf"},
				},
				Action: func(c *urfave.Context) error {
					id, err := requireArg(c, "ID")
					if err != nil {
						return err
					}
					api, err := apiClient(c)
					if err != nil {
						return err
					}
					// Issuing a receipt counts against the monthly allowance.
					if _, err := api.LogUsage(c.Context, users.UsageReceipt); err != nil {
						return err
					}
					pdf, err := api.ReceiptPDF(c.Context, id)
					if err != nil {
						return err
					}
					out := c.String("out")
					if out == "" {
						out = "receipt-" + id + ".pdf"
					}
					if err := os.WriteFile(out, pdf, 0o644); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "wrote %s (%d bytes)\n", out, len(pdf))
					return nil
				},
			},
		},
	}
}
