package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	urfave "github.com/urfave/cli/v2"

	"github.com/quickinvoice/quickinvoice/internal/client"
)

const (
	flagAPIURL   = "api-url"
	flagToken    = "token"
	flagCurrency = "currency"
	flagJSON     = "json"
	flagNoColor  = "no-color"
	flagTimezone = "tz"
)

// NewApp builds the quickinvoice command line.
func NewApp(stdout, stderr io.Writer) *urfave.App {
	return &urfave.App{
		Name:      "quickinvoice",
		Usage:     "manage invoices, receipts and stock from the terminal",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:    flagAPIURL,
				Usage:   "QuickInvoice API base URL",
				EnvVars: []string{"QUICKINVOICE_API_URL"},
				Value:   "http://localhost:8080",
			},
			&urfave.StringFlag{
				Name:    flagToken,
				Usage:   "bearer token issued by the auth provider",
				EnvVars: []string{"QUICKINVOICE_TOKEN"},
			},
			&urfave.StringFlag{
				Name:    flagCurrency,
				Usage:   "display currency (NGN, GBP, USD, EUR)",
				EnvVars: []string{"QUICKINVOICE_CURRENCY"},
			},
			&urfave.StringFlag{
				Name:    flagTimezone,
				Usage:   "timezone used for monthly windows",
				EnvVars: []string{"APP_TIMEZONE"},
				Value:   "Africa/Lagos",
			},
			&urfave.BoolFlag{Name: flagJSON, Usage: "print raw JSON"},
			&urfave.BoolFlag{Name: flagNoColor, Usage: "disable colored output"},
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(flagNoColor) {
				color.NoColor = true
			}
			return nil
		},
		Commands: []*urfave.Command{
			invoicesCommand(),
			meCommand(),
			usageCommand(),
			dashboardCommand(),
			receiptCommand(),
			deliveriesCommand(),
			bankCommand(),
			jobsCommand(),
		},
	}
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func apiClient(c *urfave.Context) (*client.Client, error) {
	token := c.String(flagToken)
	if token == "" {
		return nil, errors.New("no token: pass --token or set QUICKINVOICE_TOKEN")
	}
	session, err := client.Open(token, c.String(flagCurrency))
	if err != nil {
		return nil, err
	}
	return client.New(c.String(flagAPIURL), session, client.WithHTTPClient(httpClient)), nil
}

func location(c *urfave.Context) (*time.Location, error) {
	return time.LoadLocation(c.String(flagTimezone))
}

func requireArg(c *urfave.Context, name string) (string, error) {
	if c.Args().Len() < 1 || c.Args().First() == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return c.Args().First(), nil
}
