package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickinvoice/quickinvoice/internal/app"
	"github.com/quickinvoice/quickinvoice/internal/auth"
	"github.com/quickinvoice/quickinvoice/internal/inventory"
	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/platform/db"
)

const demoAccountID = "6f1c2d3e-4a5b-4c6d-8e7f-90a1b2c3d4e5"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	fmt.Println("→ Seeding demo account...")
	if err := seedAccount(ctx, pool); err != nil {
		log.Fatalf("seed account: %v", err)
	}

	token := os.Getenv("SEED_TOKEN")
	if token == "" {
		token = newToken()
	}
	if err := auth.NewRepository(pool).StoreToken(ctx, demoAccountID, token); err != nil {
		log.Fatalf("store token: %v", err)
	}

	fmt.Println("→ Seeding invoices...")
	svc := invoices.NewService(invoices.NewRepository(pool), invoices.ServiceConfig{Location: cfg.Location()})
	if err := seedInvoices(ctx, svc); err != nil {
		log.Fatalf("seed invoices: %v", err)
	}

	fmt.Println("→ Seeding inventory...")
	stock := inventory.NewService(inventory.NewRepository(pool), inventory.ServiceConfig{})
	if err := seedInventory(ctx, stock); err != nil {
		log.Fatalf("seed inventory: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
	fmt.Println("  QUICKINVOICE_TOKEN=" + token)
}

func seedAccount(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO accounts (id, name, email, plan, currency, bank_name, bank_account_name, bank_account_number)
		VALUES ($1, 'Ada Studio', 'ada@quickinvoice.local', 'free', 'NGN', 'First Bank', 'Ada Studio Ltd', '0123456789')
		ON CONFLICT (email) DO NOTHING`, demoAccountID)
	return err
}

func seedInvoices(ctx context.Context, svc *invoices.Service) error {
	existing, err := svc.List(ctx, demoAccountID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Println("  invoices already present, skipping")
		return nil
	}

	now := time.Now()
	due := func(days int) *invoices.Date {
		d := now.AddDate(0, 0, days)
		return &invoices.Date{Time: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)}
	}
	samples := []struct {
		input invoices.CreateInvoiceInput
		paid  bool
		sent  bool
	}{
		{
			input: invoices.CreateInvoiceInput{
				ClientName:  "Acme Ltd",
				ClientEmail: "billing@acme.test",
				Items: []invoices.ItemInput{
					{Description: "Brand identity", Quantity: 1, UnitPrice: 250000},
					{Description: "Business cards", Quantity: 200, UnitPrice: 150},
				},
				Tax:     20000,
				DueDate: due(14),
			},
			paid: true,
		},
		{
			input: invoices.CreateInvoiceInput{
				ClientName:  "Beta Foods",
				ClientEmail: "accounts@betafoods.test",
				Items:       []invoices.ItemInput{{Description: "Menu photography", Quantity: 3, UnitPrice: 45000}},
				Discount:    5000,
				DueDate:     due(-3),
			},
			sent: true,
		},
		{
			input: invoices.CreateInvoiceInput{
				ClientName: "Gamma Logistics",
				Items:      []invoices.ItemInput{{Description: "Fleet dashboard", Quantity: 10, UnitPrice: 12000}},
				DueDate:    due(30),
				Notes:      "Net 30",
			},
		},
	}

	for _, sample := range samples {
		inv, err := svc.Create(ctx, demoAccountID, sample.input)
		if err != nil {
			return err
		}
		if sample.sent || sample.paid {
			if _, err := svc.Send(ctx, demoAccountID, inv.ID); err != nil {
				return err
			}
		}
		if sample.paid {
			if _, err := svc.MarkPaid(ctx, demoAccountID, inv.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedInventory(ctx context.Context, svc *inventory.Service) error {
	items := []inventory.ItemInput{
		{Name: "A4 paper ream", SKU: "PAP-A4", Price: 4500, Stock: 40, Category: "Stationery"},
		{Name: "Toner cartridge", SKU: "TON-85A", Price: 38000, Stock: 6, Category: "Printing"},
		{Name: "Envelope pack", SKU: "ENV-DL", Price: 2500, Stock: 25, Category: "Stationery"},
	}
	for _, item := range items {
		if _, err := svc.Create(ctx, demoAccountID, item); err != nil && !errors.Is(err, inventory.ErrDuplicateSKU) {
			return err
		}
	}
	return nil
}

func newToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("generate token: %v", err)
	}
	return "qi_" + hex.EncodeToString(buf)
}
