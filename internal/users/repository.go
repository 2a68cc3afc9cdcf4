package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickinvoice/quickinvoice/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAccount loads an account by id.
func (r *Repository) GetAccount(ctx context.Context, id string) (*Account, error) {
	const query = `
		SELECT id::text, name, email, plan, currency,
			bank_name, bank_account_name, bank_account_number, created_at
		FROM accounts
		WHERE id = $1`

	var acc Account
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.Plan, &acc.Currency,
		&acc.Bank.BankName, &acc.Bank.AccountName, &acc.Bank.AccountNumber, &acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func countUsage(ctx context.Context, q querier, id string, from, to time.Time) (Usage, error) {
	const query = `
		SELECT kind, COUNT(*)
		FROM usage_events
		WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY kind`

	rows, err := q.Query(ctx, query, id, from, to)
	if err != nil {
		return Usage{}, err
	}
	defer rows.Close()

	var usage Usage
	for rows.Next() {
		var kind UsageKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return Usage{}, err
		}
		switch kind {
		case UsageInvoice:
			usage.InvoicesThisMonth = count
		case UsageReceipt:
			usage.ReceiptsThisMonth = count
		}
	}
	return usage, rows.Err()
}

// CountUsage counts usage events per kind in [from, to).
func (r *Repository) CountUsage(ctx context.Context, id string, from, to time.Time) (Usage, error) {
	return countUsage(ctx, r.pool, id, from, to)
}

// RecordUsage inserts a usage event unless the limit for its kind is reached.
// The account row is locked so concurrent requests cannot both take the last slot.
func (r *Repository) RecordUsage(ctx context.Context, input UsageInput) (Usage, error) {
	var usage Usage
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, `SELECT id::text FROM accounts WHERE id = $1 FOR UPDATE`, input.AccountID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errAccountNotFound
			}
			return err
		}
		current, err := countUsage(ctx, tx, input.AccountID, input.WindowStart, input.WindowEnd)
		if err != nil {
			return err
		}
		if input.Limit > 0 && usedOf(current, input.Kind) >= input.Limit {
			usage = current
			return ErrLimitExceeded
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO usage_events (account_id, kind, created_at) VALUES ($1, $2, $3)`,
			input.AccountID, input.Kind, input.At,
		); err != nil {
			return err
		}
		usage = increment(current, input.Kind)
		return nil
	})
	return usage, err
}

// UpdateCurrency stores the display currency.
func (r *Repository) UpdateCurrency(ctx context.Context, id, currency string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET currency = $2 WHERE id = $1`, id, currency)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errAccountNotFound
	}
	return nil
}

// UpdateBankDetails stores the settlement details.
func (r *Repository) UpdateBankDetails(ctx context.Context, id string, bank BankDetails) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts
		SET bank_name = $2, bank_account_name = $3, bank_account_number = $4
		WHERE id = $1`, id, bank.BankName, bank.AccountName, bank.AccountNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errAccountNotFound
	}
	return nil
}

func usedOf(u Usage, kind UsageKind) int {
	if kind == UsageReceipt {
		return u.ReceiptsThisMonth
	}
	return u.InvoicesThisMonth
}

func increment(u Usage, kind UsageKind) Usage {
	if kind == UsageReceipt {
		u.ReceiptsThisMonth++
	} else {
		u.InvoicesThisMonth++
	}
	return u
}
