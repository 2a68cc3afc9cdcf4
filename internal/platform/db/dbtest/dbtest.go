// Package dbtest gives repository tests a migrated PostgreSQL pool. Tests are
// skipped unless PG_DSN points at a disposable database.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickinvoice/quickinvoice/internal/platform/db"
)

// Pool connects to PG_DSN and applies migrations, or skips the test.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("PG_DSN not set; skipping PostgreSQL test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := db.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// Account inserts a throwaway free-plan account and removes it, with
// everything it owns, when the test ends.
func Account(t testing.TB, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO accounts (id, name, email) VALUES ($1, $2, $3)`,
		id, "Test "+id[:8], id+"@quickinvoice.test")
	if err != nil {
		t.Fatalf("insert account: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM accounts WHERE id = $1`, id)
	})
	return id
}
