package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertItem(ctx context.Context, accountID string, item Item) error
	GetItemForUpdate(ctx context.Context, accountID, id string) (Item, error)
	UpdateItem(ctx context.Context, accountID string, item Item) error
}

type txRepo struct {
	tx pgx.Tx
}

const itemColumns = `id::text, name, sku, price, stock, category, description, created_at, updated_at`

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return translateTxError(err)
	}
	return translateTxError(tx.Commit(ctx))
}

// translateTxError turns serialization failures and deadlocks into
// ErrConcurrentUpdate so callers can retry.
func translateTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConcurrentUpdate, pgErr.Message)
		}
	}
	return err
}

// ListItems returns the account's items ordered by name.
func (r *Repository) ListItems(ctx context.Context, accountID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+`
		FROM inventory_items
		WHERE account_id = $1
		ORDER BY lower(name), id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem loads one item.
func (r *Repository) GetItem(ctx context.Context, accountID, id string) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+`
		FROM inventory_items
		WHERE account_id = $1 AND id = $2`, accountID, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item.
func (r *Repository) DeleteItem(ctx context.Context, accountID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inventory_items WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepo) InsertItem(ctx context.Context, accountID string, item Item) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_items
		(id, account_id, name, sku, price, stock, category, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, accountID, item.Name, item.SKU, item.Price, item.Stock,
		item.Category, item.Description, item.CreatedAt, item.UpdatedAt)
	return mapUniqueViolation(err)
}

func (r *txRepo) GetItemForUpdate(ctx context.Context, accountID, id string) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+`
		FROM inventory_items
		WHERE account_id = $1 AND id = $2
		FOR UPDATE`, accountID, id)
	return scanItem(row)
}

func (r *txRepo) UpdateItem(ctx context.Context, accountID string, item Item) error {
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_items
		SET name = $3, sku = $4, price = $5, stock = $6, category = $7, description = $8, updated_at = $9
		WHERE account_id = $1 AND id = $2`,
		accountID, item.ID, item.Name, item.SKU, item.Price, item.Stock,
		item.Category, item.Description, item.UpdatedAt)
	if err := mapUniqueViolation(err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.SKU, &item.Price, &item.Stock,
		&item.Category, &item.Description, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return item, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSKU
	}
	return err
}
