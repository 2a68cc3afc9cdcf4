package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/platform/db/dbtest"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

func TestTranslateTxError(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		err := translateTxError(&pgconn.PgError{Code: code, Message: "could not serialize access"})
		require.ErrorIs(t, err, ErrConcurrentUpdate)
		require.ErrorIs(t, err, httpx.ErrConflict)
	}
	other := errors.New("boom")
	require.Equal(t, other, translateTxError(other))
	require.NoError(t, translateTxError(nil))
	require.ErrorIs(t, translateTxError(ErrInsufficientStock), ErrInsufficientStock)
}

func TestConcurrentAdjustNeverLosesUpdates(t *testing.T) {
	pool := dbtest.Pool(t)
	svc := NewService(NewRepository(pool), ServiceConfig{})
	ctx := context.Background()
	acc := dbtest.Account(t, pool)

	item, err := svc.Create(ctx, acc, ItemInput{Name: "Beads", SKU: "B1", Price: 10, Stock: 100})
	require.NoError(t, err)

	const workers = 8
	var mu sync.Mutex
	applied := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Adjust(ctx, acc, item.ID, AdjustmentInput{Qty: -1})
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrConcurrentUpdate) {
				t.Errorf("adjust: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, acc, item.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, applied, 1)
	require.Equal(t, float64(100-applied), got.Stock)
}
