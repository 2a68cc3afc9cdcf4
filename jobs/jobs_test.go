package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/users"
)

type captureQueue struct {
	payloads []InvoiceEmailPayload
}

func (q *captureQueue) EnqueueInvoiceEmail(ctx context.Context, payload InvoiceEmailPayload) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

type staticAccounts struct {
	acc *users.Account
	err error
}

func (s staticAccounts) Me(ctx context.Context, accountID string) (*users.Account, error) {
	return s.acc, s.err
}

type countingRecorder struct {
	ok, failed int
}

func (r *countingRecorder) JobProcessed(task string, err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func sentInvoice() ledger.Invoice {
	due := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	return ledger.Recompute(ledger.Invoice{
		ID:          "2d1f6c1e-8a7b-4c1d-9a55-000000000042",
		ClientName:  "Acme Ltd",
		ClientEmail: "billing@acme.test",
		Items:       []ledger.LineItem{{Description: "Design", Quantity: 2, UnitPrice: 500}},
		Tax:         50,
		Status:      ledger.StatusSent,
		DueDate:     &due,
	})
}

func TestInvoiceMailerQueuesEmail(t *testing.T) {
	queue := &captureQueue{}
	accounts := staticAccounts{acc: &users.Account{
		Name:     "Ada Studio",
		Currency: "NGN",
		Bank:     users.BankDetails{BankName: "First Bank", AccountName: "Ada Studio", AccountNumber: "0123456789"},
	}}
	mailer := NewInvoiceMailer(queue, accounts)

	require.NoError(t, mailer.InvoiceSent(context.Background(), "acc", sentInvoice()))
	require.Len(t, queue.payloads, 1)
	payload := queue.payloads[0]
	require.Equal(t, "billing@acme.test", payload.To)
	require.Equal(t, "Invoice from Ada Studio", payload.Subject)
	require.Contains(t, payload.Body, "₦1,050.00")
	require.Contains(t, payload.Body, "Due date: 1 April 2025")
	require.Contains(t, payload.Body, "0123456789")
}

func TestInvoiceMailerAccountError(t *testing.T) {
	queue := &captureQueue{}
	mailer := NewInvoiceMailer(queue, staticAccounts{err: errors.New("db down")})
	require.Error(t, mailer.InvoiceSent(context.Background(), "acc", sentInvoice()))
	require.Empty(t, queue.payloads)
}

func TestNewInvoiceEmailTask(t *testing.T) {
	task, err := NewInvoiceEmailTask(InvoiceEmailPayload{InvoiceID: "inv-1", To: "a@b.test", Subject: "hi"})
	require.NoError(t, err)
	require.Equal(t, TaskInvoiceEmail, task.Type())

	var decoded InvoiceEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, "inv-1", decoded.InvoiceID)

	_, err = NewInvoiceEmailTask(InvoiceEmailPayload{InvoiceID: "inv-2"})
	require.Error(t, err)
}

func TestInvoiceEmailJobHandle(t *testing.T) {
	recorder := &countingRecorder{}
	job := NewInvoiceEmailJob(slog.New(slog.NewTextHandler(io.Discard, nil)), recorder)

	task, err := NewInvoiceEmailTask(InvoiceEmailPayload{InvoiceID: "inv-1", To: "a@b.test"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(TaskInvoiceEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, 1, recorder.ok)
	require.Equal(t, 1, recorder.failed)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Archived: 1}}, logger))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":3,"retry":0,"archived":1}`, rec.Body.String())

	rec = serve(NewHandler(fakeInspector{err: errors.New("redis down")}, logger))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(NewHandler(nil, logger))
	require.Equal(t, http.StatusOK, rec.Code)
}

type fakeSweeper struct {
	olderThan time.Duration
	removed   int64
	err       error
}

func (s *fakeSweeper) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return s.removed, s.err
}

func TestIdempotencyCleanupJob(t *testing.T) {
	sweeper := &fakeSweeper{removed: 7}
	recorder := &countingRecorder{}
	job := NewIdempotencyCleanupJob(sweeper, slog.New(slog.NewTextHandler(io.Discard, nil)), recorder)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, TaskIdempotencyCleanup, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 48*time.Hour, sweeper.olderThan)

	sweeper.err = errors.New("db down")
	require.Error(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte(`{"retention_hours":0}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, 1, recorder.ok)
	require.Equal(t, 2, recorder.failed)
}

func TestNewIdempotencyCleanupTaskRejectsShortRetention(t *testing.T) {
	_, err := NewIdempotencyCleanupTask(30 * time.Minute)
	require.Error(t, err)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	require.Error(t, err)
}
