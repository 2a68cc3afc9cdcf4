package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceEmail delivers a sent invoice to its client.
	TaskInvoiceEmail = "invoice:send-email"
)

// InvoiceEmailPayload describes one invoice email.
type InvoiceEmailPayload struct {
	AccountID string `json:"account_id"`
	InvoiceID string `json:"invoice_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// NewInvoiceEmailTask constructs an Asynq task. Tasks are unique per invoice
// so a double submit does not mail the client twice.
func NewInvoiceEmailTask(payload InvoiceEmailPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.To) == "" {
		return nil, fmt.Errorf("jobs: invoice %s has no recipient", payload.InvoiceID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceEmail, data, asynq.Queue(QueueDefault), asynq.TaskID("invoice-email:"+payload.InvoiceID), asynq.MaxRetry(5)), nil
}

// Recorder observes processed jobs.
type Recorder interface {
	JobProcessed(task string, err error)
}

// InvoiceEmailJob processes TaskInvoiceEmail tasks.
type InvoiceEmailJob struct {
	logger   *slog.Logger
	recorder Recorder
}

// NewInvoiceEmailJob builds the job handler.
func NewInvoiceEmailJob(logger *slog.Logger, recorder Recorder) *InvoiceEmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceEmailJob{logger: logger, recorder: recorder}
}

// Handle processes one task.
func (j *InvoiceEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.record(err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	// Placeholder: SMTP delivery lands with the mail provider integration.
	j.logger.Info("send invoice email",
		slog.String("account", payload.AccountID),
		slog.String("invoice", payload.InvoiceID),
		slog.String("to", payload.To),
		slog.String("subject", payload.Subject),
	)
	j.record(nil)
	return nil
}

func (j *InvoiceEmailJob) record(err error) {
	if j.recorder != nil {
		j.recorder.JobProcessed(TaskInvoiceEmail, err)
	}
}

// TaskIdempotencyCleanup purges expired Idempotency-Key records.
const TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"

// IdempotencyCleanupPayload configures one sweep.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask builds the sweep task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	hours := int(retention / time.Hour)
	if hours <= 0 {
		return nil, fmt.Errorf("jobs: retention must be at least one hour, got %s", retention)
	}
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: hours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}

// Sweeper deletes records older than a retention window.
type Sweeper interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob processes TaskIdempotencyCleanup tasks.
type IdempotencyCleanupJob struct {
	store    Sweeper
	logger   *slog.Logger
	recorder Recorder
}

// NewIdempotencyCleanupJob builds the job handler.
func NewIdempotencyCleanupJob(store Sweeper, logger *slog.Logger, recorder Recorder) *IdempotencyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{store: store, logger: logger, recorder: recorder}
}

// Handle processes one sweep.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RetentionHours <= 0 {
		err = fmt.Errorf("invalid cleanup payload: %w", asynq.SkipRetry)
		j.record(err)
		return err
	}
	removed, err := j.store.Cleanup(ctx, time.Duration(payload.RetentionHours)*time.Hour)
	j.record(err)
	if err != nil {
		return err
	}
	j.logger.Info("idempotency keys swept", slog.Int64("removed", removed), slog.Int("retention_hours", payload.RetentionHours))
	return nil
}

func (j *IdempotencyCleanupJob) record(err error) {
	if j.recorder != nil {
		j.recorder.JobProcessed(TaskIdempotencyCleanup, err)
	}
}
