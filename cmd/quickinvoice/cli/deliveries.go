package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	urfave "github.com/urfave/cli/v2"

	"github.com/quickinvoice/quickinvoice/internal/deliveries"
	"github.com/quickinvoice/quickinvoice/internal/users"
)

func deliveriesCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "deliveries",
		Usage: "track parcels sent to receivers",
		Subcommands: []*urfave.Command{
			{
				Name:  "list",
				Usage: "list deliveries, newest first",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "status", Usage: "only pending, in_transit or delivered"},
				},
				Action: func(c *urfave.Context) error {
					api, err := apiClient(c)
					if err != nil {
						return err
					}
					list, err := api.ListDeliveries(c.Context, deliveries.Status(c.String("status")))
					if err != nil {
						return err
					}
					if c.Bool(flagJSON) {
						return writeJSON(c.App.Writer, list)
					}
					printDeliveryTable(c.App.Writer, list)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "register a pending delivery",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "from", Usage: "pickup address", Required: true},
					&urfave.StringFlag{Name: "to", Usage: "delivery address", Required: true},
					&urfave.StringFlag{Name: "receiver", Usage: "receiver name", Required: true},
					&urfave.StringFlag{Name: "phone", Usage: "receiver phone", Required: true},
				},
				Action: func(c *urfave.Context) error {
					api, err := apiClient(c)
					if err != nil {
						return err
					}
					d, err := api.CreateDelivery(c.Context, deliveries.DeliveryInput{
						PickupAddress:   c.String("from"),
						DeliveryAddress: c.String("to"),
						ReceiverName:    c.String("receiver"),
						ReceiverPhone:   c.String("phone"),
					})
					if err != nil {
						return err
					}
					if c.Bool(flagJSON) {
						return writeJSON(c.App.Writer, d)
					}
					fmt.Fprintf(c.App.Writer, "created delivery %s\n", d.ID)
					return nil
				},
			},
			{
				Name:      "advance",
				Usage:     "move a delivery to in_transit or delivered",
				ArgsUsage: "ID STATUS",
				Action: func(c *urfave.Context) error {
					if c.Args().Len() < 2 {
						return fmt.Errorf("missing ID and STATUS arguments")
					}
					api, err := apiClient(c)
					if err != nil {
						return err
					}
					d, err := api.AdvanceDelivery(c.Context, c.Args().Get(0), deliveries.Status(c.Args().Get(1)))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "delivery %s is %s\n", d.ID, deliveryLabel(d.Status))
					return nil
				},
			},
		},
	}
}

func deliveryLabel(s deliveries.Status) string {
	switch s {
	case deliveries.StatusDelivered:
		return color.GreenString(string(s))
	case deliveries.StatusInTransit:
		return color.BlueString(string(s))
	}
	return string(s)
}

func printDeliveryTable(w io.Writer, list []deliveries.Delivery) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no deliveries")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROUTE\tRECEIVER\tSTATUS\tUPDATED")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s -> %s\t%s (%s)\t%s\t%s\n", d.ID, d.PickupAddress, d.DeliveryAddress,
			d.ReceiverName, d.ReceiverPhone, deliveryLabel(d.Status), humanize.Time(d.UpdatedAt))
	}
	_ = tw.Flush()
}

func bankCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "bank",
		Usage: "show or set the bank details printed on invoices and receipts",
		Subcommands: []*urfave.Command{
			{
				Name:  "show",
				Usage: "print the stored bank details",
				Action: func(c *urfave.Context) error {
					api, err := apiClient(c)
					if err != nil {
						return err
					}
					bank, err := api.AccountDetails(c.Context)
					if err != nil {
						return err
					}
					return printBank(c, bank)
				},
			},
			{
				Name:  "set",
				Usage: "replace the bank details",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "bank", Usage: "bank name", Required: true},
					&urfave.StringFlag{Name: "name", Usage: "account name", Required: true},
					&urfave.StringFlag{Name: "number", Usage: "account number", Required: true},
				},
				Action: func(c *urfave.Context) error {
					api, err := apiClient(c)
					if err != nil {
						return err
					}
					bank, err := api.SetAccountDetails(c.Context, users.BankDetails{
						BankName:      c.String("bank"),
						AccountName:   c.String("name"),
						AccountNumber: c.String("number"),
					})
					if err != nil {
						return err
					}
					return printBank(c, bank)
				},
			},
		},
	}
}

func printBank(c *urfave.Context, bank users.BankDetails) error {
	if c.Bool(flagJSON) {
		return writeJSON(c.App.Writer, bank)
	}
	if bank.AccountNumber == "" {
		fmt.Fprintln(c.App.Writer, "no bank details on file")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s\n%s\n%s\n", bank.BankName, bank.AccountName, bank.AccountNumber)
	return nil
}
