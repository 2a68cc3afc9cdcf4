package users

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/platform/db/dbtest"
)

func TestRecordUsageHoldsLimitUnderConcurrency(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepository(pool)
	acc := dbtest.Account(t, pool)
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var granted, refused atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordUsage(context.Background(), UsageInput{
				AccountID:   acc,
				Kind:        UsageInvoice,
				At:          now,
				WindowStart: start,
				WindowEnd:   start.AddDate(0, 1, 0),
				Limit:       3,
			})
			switch {
			case err == nil:
				granted.Add(1)
			case IsLimitExceeded(err):
				refused.Add(1)
			default:
				t.Errorf("record usage: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(3), granted.Load())
	require.Equal(t, int32(9), refused.Load())

	usage, err := repo.CountUsage(context.Background(), acc, start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, 3, usage.InvoicesThisMonth)
	require.Zero(t, usage.ReceiptsThisMonth)
}

func TestRepositoryAccountDetails(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	acc := dbtest.Account(t, pool)

	bank := BankDetails{BankName: "GTBank", AccountName: "Ada Stores", AccountNumber: "0123456789"}
	require.NoError(t, repo.UpdateBankDetails(ctx, acc, bank))
	require.NoError(t, repo.UpdateCurrency(ctx, acc, "GBP"))

	got, err := repo.GetAccount(ctx, acc)
	require.NoError(t, err)
	require.Equal(t, bank, got.Bank)
	require.Equal(t, "GBP", got.Currency)
	require.Equal(t, PlanFree, got.Plan)
}
