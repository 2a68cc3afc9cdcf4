package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// IdempotencyStore persists client supplied request keys per account.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// ErrDuplicateRequest indicates the key was already used by the account.
var ErrDuplicateRequest = fmt.Errorf("request already processed: %w", httpx.ErrDuplicate)

// ErrIdempotencyKeyTooLong rejects keys that do not fit the index.
var ErrIdempotencyKeyTooLong = fmt.Errorf("idempotency key longer than %d characters: %w", MaxIdempotencyKeyLen, httpx.ErrValidation)

// MaxIdempotencyKeyLen bounds accepted keys.
const MaxIdempotencyKeyLen = 200

// Claim records key for the account, failing with ErrDuplicateRequest when it is already present.
func (s *IdempotencyStore) Claim(ctx context.Context, accountID, key string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("idempotency key required")
	}
	if len(key) > MaxIdempotencyKeyLen {
		return ErrIdempotencyKeyTooLong
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (account_id, key, created_at) VALUES ($1, $2, $3)`, accountID, key, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRequest
		}
		return err
	}
	return nil
}

// Release removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Release(ctx context.Context, accountID, key string) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE account_id = $1 AND key = $2`, accountID, strings.TrimSpace(key))
	return err
}

// Cleanup removes entries older than retention and reports how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
