package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/shared"
)

type usageEvent struct {
	accountID string
	kind      UsageKind
	at        time.Time
}

type memoryRepo struct {
	accounts map[string]*Account
	events   []usageEvent
}

func newMemoryRepo(accounts ...Account) *memoryRepo {
	repo := &memoryRepo{accounts: make(map[string]*Account)}
	for i := range accounts {
		acc := accounts[i]
		repo.accounts[acc.ID] = &acc
	}
	return repo
}

func (r *memoryRepo) GetAccount(ctx context.Context, id string) (*Account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return nil, errAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (r *memoryRepo) CountUsage(ctx context.Context, id string, from, to time.Time) (Usage, error) {
	var u Usage
	for _, ev := range r.events {
		if ev.accountID != id || ev.at.Before(from) || !ev.at.Before(to) {
			continue
		}
		u = increment(u, ev.kind)
	}
	return u, nil
}

func (r *memoryRepo) RecordUsage(ctx context.Context, input UsageInput) (Usage, error) {
	current, _ := r.CountUsage(ctx, input.AccountID, input.WindowStart, input.WindowEnd)
	if input.Limit > 0 && usedOf(current, input.Kind) >= input.Limit {
		return current, ErrLimitExceeded
	}
	r.events = append(r.events, usageEvent{accountID: input.AccountID, kind: input.Kind, at: input.At})
	return increment(current, input.Kind), nil
}

func (r *memoryRepo) UpdateCurrency(ctx context.Context, id, currency string) error {
	acc, ok := r.accounts[id]
	if !ok {
		return errAccountNotFound
	}
	acc.Currency = currency
	return nil
}

func (r *memoryRepo) UpdateBankDetails(ctx context.Context, id string, bank BankDetails) error {
	acc, ok := r.accounts[id]
	if !ok {
		return errAccountNotFound
	}
	acc.Bank = bank
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLogUsageEnforcesFreePlanLimit(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "free", Plan: PlanFree, Currency: "NGN"})
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, ServiceConfig{FreePlanLimit: 2, Now: fixedClock(now)})
	ctx := context.Background()

	_, err := svc.LogUsage(ctx, "free", UsageInvoice)
	require.NoError(t, err)
	usage, err := svc.LogUsage(ctx, "free", UsageInvoice)
	require.NoError(t, err)
	require.Equal(t, 2, usage.InvoicesThisMonth)

	_, err = svc.LogUsage(ctx, "free", UsageInvoice)
	require.ErrorIs(t, err, ErrLimitExceeded)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	// Receipts are metered separately.
	_, err = svc.LogUsage(ctx, "free", UsageReceipt)
	require.NoError(t, err)
}

func TestLogUsageResetsEachCalendarMonth(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "free", Plan: PlanFree})
	now := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	svc := NewService(repo, ServiceConfig{FreePlanLimit: 1, Now: func() time.Time { return now }})
	ctx := context.Background()

	_, err := svc.LogUsage(ctx, "free", UsageInvoice)
	require.NoError(t, err)
	_, err = svc.LogUsage(ctx, "free", UsageInvoice)
	require.ErrorIs(t, err, ErrLimitExceeded)

	now = time.Date(2025, time.April, 1, 0, 30, 0, 0, time.UTC)
	_, err = svc.LogUsage(ctx, "free", UsageInvoice)
	require.NoError(t, err)
}

func TestLogUsageProIsUnlimited(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "pro", Plan: PlanPro})
	svc := NewService(repo, ServiceConfig{FreePlanLimit: 1})
	for i := 0; i < 5; i++ {
		_, err := svc.LogUsage(context.Background(), "pro", UsageReceipt)
		require.NoError(t, err)
	}
}

func TestLogUsageRejectsUnknownKind(t *testing.T) {
	svc := NewService(newMemoryRepo(Account{ID: "a"}), ServiceConfig{})
	_, err := svc.LogUsage(context.Background(), "a", UsageKind("quote"))
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestMeIncludesUsageAndLimit(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "a", Plan: PlanFree, Currency: "USD"})
	svc := NewService(repo, ServiceConfig{})
	_, err := svc.LogUsage(context.Background(), "a", UsageReceipt)
	require.NoError(t, err)

	acc, err := svc.Me(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, 1, acc.Usage.ReceiptsThisMonth)
	require.Equal(t, DefaultFreePlanLimit, acc.Limit)

	_, err = svc.Me(context.Background(), "missing")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSetCurrency(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "a", Currency: "NGN"})
	svc := NewService(repo, ServiceConfig{})

	acc, err := svc.SetCurrency(context.Background(), "a", "gbp")
	require.NoError(t, err)
	require.Equal(t, "GBP", acc.Currency)

	_, err = svc.SetCurrency(context.Background(), "a", "JPY")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestLogUsageHandlerReportsLimit(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "a", Plan: PlanFree})
	h := NewHandler(nil, NewService(repo, ServiceConfig{FreePlanLimit: 1}))
	r := chi.NewRouter()
	r.Post("/invoices/log", h.LogUsage)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/invoices/log", strings.NewReader(`{"type":"invoice"}`))
		req = req.WithContext(shared.ContextWithAccount(req.Context(), "a"))
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		return res
	}

	require.Equal(t, http.StatusOK, send().Code)
	res := send()
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Contains(t, res.Body.String(), "Upgrade to Pro")
}

func TestSetBankDetails(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "a"})
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	bank, err := svc.SetBankDetails(ctx, "a", BankDetails{
		BankName:      " GTBank ",
		AccountName:   "Ada Stores",
		AccountNumber: "0123 456 789",
	})
	require.NoError(t, err)
	require.Equal(t, BankDetails{BankName: "GTBank", AccountName: "Ada Stores", AccountNumber: "0123456789"}, bank)

	stored, err := svc.BankDetails(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, bank, stored)

	_, err = svc.SetBankDetails(ctx, "a", BankDetails{BankName: "GTBank", AccountNumber: "12ab34"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "is required", verr.Fields["accountName"])
	require.Equal(t, "must contain digits only", verr.Fields["accountNumber"])

	_, err = svc.SetBankDetails(ctx, "missing", bank)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestAccountDetailsHandler(t *testing.T) {
	repo := newMemoryRepo(Account{ID: "a"})
	h := NewHandler(nil, NewService(repo, ServiceConfig{}))
	r := chi.NewRouter()
	r.Route("/users", h.MountRoutes)

	do := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/users/me/account-details", strings.NewReader(body))
		req = req.WithContext(shared.ContextWithAccount(req.Context(), "a"))
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		return res
	}

	res := do(http.MethodPut, `{"bankName":"Access","accountName":"Ada","accountNumber":"0011223344"}`)
	require.Equal(t, http.StatusOK, res.Code)

	res = do(http.MethodGet, "")
	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"bankName":"Access","accountName":"Ada","accountNumber":"0011223344"}`, res.Body.String())

	require.Equal(t, http.StatusBadRequest, do(http.MethodPut, `{"bankName":"Access"}`).Code)
}
