package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists deliveries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const deliveryColumns = `id::text, pickup_address, delivery_address, receiver_name, receiver_phone, status, created_at, updated_at`

// ListDeliveries returns the account's deliveries, newest first.
func (r *Repository) ListDeliveries(ctx context.Context, accountID string) ([]Delivery, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE account_id = $1
		ORDER BY created_at DESC, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDelivery loads one delivery.
func (r *Repository) GetDelivery(ctx context.Context, accountID, id string) (*Delivery, error) {
	d, err := scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE account_id = $1 AND id = $2`, accountID, id))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertDelivery stores a new delivery.
func (r *Repository) InsertDelivery(ctx context.Context, accountID string, d Delivery) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO deliveries
		(id, account_id, pickup_address, delivery_address, receiver_name, receiver_phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, accountID, d.PickupAddress, d.DeliveryAddress, d.ReceiverName, d.ReceiverPhone,
		string(d.Status), d.CreatedAt, d.UpdatedAt)
	return err
}

// UpdateStatus is a compare-and-set on the stored status.
func (r *Repository) UpdateStatus(ctx context.Context, accountID, id string, from, to Status, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE deliveries SET status = $4, updated_at = $5
		WHERE account_id = $1 AND id = $2 AND status = $3`,
		accountID, id, string(from), string(to), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetDelivery(ctx, accountID, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: expected %s", ErrStatusChanged, from)
}

func scanDelivery(row pgx.Row) (Delivery, error) {
	var d Delivery
	var status string
	err := row.Scan(&d.ID, &d.PickupAddress, &d.DeliveryAddress, &d.ReceiverName, &d.ReceiverPhone,
		&status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Delivery{}, ErrDeliveryNotFound
	}
	d.Status = Status(status)
	return d, err
}
