package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/platform/db"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for invoices.
// Writes are last-write-wins; there is no version column.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateInvoice inserts the invoice header and its items in one transaction.
func (r *Repository) CreateInvoice(ctx context.Context, accountID string, inv ledger.Invoice) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const header = `
			INSERT INTO invoices (
				id, account_id, client_name, client_email, client_phone,
				tax, discount, subtotal, total, status, due_date, notes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

		var due pgtype.Date
		if inv.DueDate != nil {
			due = pgtype.Date{Time: *inv.DueDate, Valid: true}
		}
		_, err := tx.Exec(ctx, header,
			inv.ID, accountID, inv.ClientName, inv.ClientEmail, inv.ClientPhone,
			inv.Tax, inv.Discount, inv.Subtotal, inv.Total, string(inv.Status), due, inv.Notes, inv.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("invoices: %s: %w", pgErr.ConstraintName, httpx.ErrDuplicate)
			}
			return err
		}

		rows := make([][]any, len(inv.Items))
		for i, it := range inv.Items {
			rows[i] = []any{inv.ID, i, it.Description, it.Quantity, it.UnitPrice, it.Total}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"invoice_items"},
			[]string{"invoice_id", "position", "description", "quantity", "unit_price", "total"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
}

const selectInvoice = `
	SELECT id::text, client_name, client_email, client_phone,
		tax, discount, subtotal, total, status, due_date, notes, created_at
	FROM invoices`

func scanInvoice(row pgx.Row) (ledger.Invoice, error) {
	var inv ledger.Invoice
	var status string
	var due pgtype.Date
	err := row.Scan(
		&inv.ID, &inv.ClientName, &inv.ClientEmail, &inv.ClientPhone,
		&inv.Tax, &inv.Discount, &inv.Subtotal, &inv.Total, &status, &due, &inv.Notes, &inv.CreatedAt,
	)
	if err != nil {
		return ledger.Invoice{}, err
	}
	inv.Status = ledger.Status(status)
	if due.Valid {
		t := time.Date(due.Time.Year(), due.Time.Month(), due.Time.Day(), 0, 0, 0, 0, time.UTC)
		inv.DueDate = &t
	}
	return inv, nil
}

// GetInvoice loads one invoice with its items.
func (r *Repository) GetInvoice(ctx context.Context, accountID, id string) (*ledger.Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, selectInvoice+` WHERE account_id = $1 AND id = $2`, accountID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.listItems(ctx, []string{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.Items = items[inv.ID]
	return &inv, nil
}

// ListInvoices returns every invoice of the account, newest first.
func (r *Repository) ListInvoices(ctx context.Context, accountID string) ([]ledger.Invoice, error) {
	rows, err := r.pool.Query(ctx, selectInvoice+` WHERE account_id = $1 ORDER BY created_at DESC, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Invoice
	var ids []string
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.listItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repository) listItems(ctx context.Context, ids []string) (map[string][]ledger.LineItem, error) {
	const query = `
		SELECT invoice_id::text, description, quantity, unit_price, total
		FROM invoice_items
		WHERE invoice_id = ANY($1::uuid[])
		ORDER BY invoice_id, position`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]ledger.LineItem, len(ids))
	for rows.Next() {
		var invoiceID string
		var it ledger.LineItem
		if err := rows.Scan(&invoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Total); err != nil {
			return nil, err
		}
		out[invoiceID] = append(out[invoiceID], it)
	}
	return out, rows.Err()
}

// UpdateStatus is a compare-and-set on the stored status. Zero affected rows
// means either the invoice is gone or its status moved on.
func (r *Repository) UpdateStatus(ctx context.Context, accountID, id string, from, to ledger.Status) error {
	const query = `UPDATE invoices SET status = $4 WHERE account_id = $1 AND id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, query, accountID, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var current string
	err = r.pool.QueryRow(ctx, `SELECT status FROM invoices WHERE account_id = $1 AND id = $2`, accountID, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvoiceNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: stored %s, expected %s", ErrStatusChanged, current, from)
}

// DeleteInvoice removes the invoice; items go with it through ON DELETE CASCADE.
func (r *Repository) DeleteInvoice(ctx context.Context, accountID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
