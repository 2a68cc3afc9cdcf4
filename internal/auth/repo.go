package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// Repository defines persistence operations for token lookup.
type Repository interface {
	AccountForToken(ctx context.Context, hash []byte) (string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// AccountForToken returns the account id of a live token.
func (r *PGRepository) AccountForToken(ctx context.Context, hash []byte) (string, error) {
	const query = `SELECT account_id::text FROM api_tokens WHERE token_hash = $1 AND revoked_at IS NULL`
	var accountID string
	if err := r.pool.QueryRow(ctx, query, hash).Scan(&accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", httpx.ErrNotFound
		}
		return "", err
	}
	return accountID, nil
}

// StoreToken records a token hash for an account. Used by seeding tools.
func (r *PGRepository) StoreToken(ctx context.Context, accountID, token string) error {
	const query = `INSERT INTO api_tokens (token_hash, account_id) VALUES ($1, $2)
		ON CONFLICT (token_hash) DO UPDATE SET account_id = EXCLUDED.account_id, revoked_at = NULL`
	_, err := r.pool.Exec(ctx, query, HashToken(token), accountID)
	return err
}
