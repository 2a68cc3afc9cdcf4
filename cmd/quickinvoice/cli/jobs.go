package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	urfave "github.com/urfave/cli/v2"

	"github.com/quickinvoice/quickinvoice/jobs"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunAllArchivedTasks(queue string) (int, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    taskEnqueuer
	inspector queueInspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		err = errors.Join(err, c.inspector.Close())
	}
	if c.client != nil {
		err = errors.Join(err, c.client.Close())
	}
	return err
}

// TriggerInvoiceEmail queues an invoice email by hand. A task already queued for
// the invoice is reported as ErrAlreadyQueued.
func (c *JobsCLI) TriggerInvoiceEmail(ctx context.Context, payload jobs.InvoiceEmailPayload) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.NewInvoiceEmailTask(payload)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, ErrAlreadyQueued
	}
	return info, err
}

// ErrAlreadyQueued reports that the invoice already has a pending email task.
var ErrAlreadyQueued = errors.New("jobs cli: email for this invoice is already queued")

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// RequeueArchived moves every archived task back to pending.
func (c *JobsCLI) RequeueArchived() (int, error) {
	if c == nil || c.inspector == nil {
		return 0, errors.New("jobs cli: inspector not configured")
	}
	return c.inspector.RunAllArchivedTasks(jobs.QueueDefault)
}

// newJobsCLI is replaced in tests.
var newJobsCLI = NewJobsCLI

func withJobs(fn func(c *urfave.Context, j *JobsCLI) error) urfave.ActionFunc {
	return func(c *urfave.Context) error {
		j := newJobsCLI(c.String("redis"))
		defer func() {
			_ = j.Close()
		}()
		return fn(c, j)
	}
}

func jobsCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "jobs",
		Usage: "inspect and drive the background email queue",
		Flags: []urfave.Flag{
			&urfave.StringFlag{Name: "redis", Usage: "Redis address of the queue", EnvVars: []string{"REDIS_ADDR"}, Value: "127.0.0.1:6379"},
		},
		Subcommands: []*urfave.Command{
			{
				Name:  "stats",
				Usage: "show queue depth",
				Action: withJobs(func(c *urfave.Context, j *JobsCLI) error {
					stats, err := j.InspectQueue()
					if err != nil {
						return err
					}
					if c.Bool(flagJSON) {
						return writeJSON(c.App.Writer, stats)
					}
					tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintf(tw, "queue\t%s\n", stats.Queue)
					fmt.Fprintf(tw, "pending\t%d\n", stats.Pending)
					fmt.Fprintf(tw, "active\t%d\n", stats.Active)
					fmt.Fprintf(tw, "scheduled\t%d\n", stats.Scheduled)
					fmt.Fprintf(tw, "retry\t%d\n", stats.Retry)
					fmt.Fprintf(tw, "archived\t%d\n", stats.Archived)
					return tw.Flush()
				}),
			},
			{
				Name:  "scheduled",
				Usage: "list scheduled tasks",
				Flags: []urfave.Flag{&urfave.IntFlag{Name: "size", Value: 10}},
				Action: withJobs(func(c *urfave.Context, j *JobsCLI) error {
					tasks, err := j.ListScheduled(c.Int("size"))
					if err != nil {
						return err
					}
					for _, t := range tasks {
						fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02 15:04"))
					}
					return nil
				}),
			},
			{
				Name:  "requeue",
				Usage: "move archived tasks back to pending",
				Action: withJobs(func(c *urfave.Context, j *JobsCLI) error {
					n, err := j.RequeueArchived()
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "requeued %d task(s)\n", n)
					return nil
				}),
			},
			{
				Name:  "trigger",
				Usage: "queue an invoice email by hand",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "account", Required: true},
					&urfave.StringFlag{Name: "invoice", Required: true},
					&urfave.StringFlag{Name: "to", Required: true},
					&urfave.StringFlag{Name: "subject", Value: "Your invoice"},
					&urfave.StringFlag{Name: "body"},
				},
				Action: withJobs(func(c *urfave.Context, j *JobsCLI) error {
					info, err := j.TriggerInvoiceEmail(c.Context, jobs.InvoiceEmailPayload{
						AccountID: c.String("account"),
						InvoiceID: c.String("invoice"),
						To:        c.String("to"),
						Subject:   c.String("subject"),
						Body:      c.String("body"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "queued %s on %s\n", info.ID, info.Queue)
					return nil
				}),
			},
		},
	}
}
