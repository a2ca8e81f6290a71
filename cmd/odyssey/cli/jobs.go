package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-sales/jobs"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    taskEnqueuer
	inspector queueInspector
	retention time.Duration
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string, retention time.Duration) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return newJobsCLI(asynq.NewClient(opts), asynq.NewInspector(opts), retention), nil
}

func newJobsCLI(client taskEnqueuer, inspector queueInspector, retention time.Duration) *JobsCLI {
	if retention <= 0 {
		retention = jobs.DefaultIdempotencyRetention
	}
	return &JobsCLI{client: client, inspector: inspector, retention: retention}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. day only applies to the daily
// digest; the zero value summarises yesterday.
func (c *JobsCLI) Trigger(ctx context.Context, name string, day time.Time) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskDailySalesDigest:
		task, err = jobs.NewDailyDigestTask(day)
	case jobs.TaskIdempotencyCleanup:
		task, err = jobs.NewIdempotencyCleanupTask(c.retention)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
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
	}
	return stats, nil
}

// JobsOptions defines the arguments of the jobs command.
type JobsOptions struct {
	Args       []string
	Day        string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// JobsCommand runs "jobs trigger <task>" or "jobs stats" and returns the
// process exit code.
func (c *JobsCLI) JobsCommand(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Args) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs: expected subcommand (trigger <task> | stats)")
		return 2
	}
	switch opts.Args[0] {
	case "trigger":
		if len(opts.Args) < 2 {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: task name required (%s, %s)\n", jobs.TaskDailySalesDigest, jobs.TaskIdempotencyCleanup)
			return 2
		}
		var day time.Time
		if opts.Day != "" {
			parsed, err := time.Parse(time.DateOnly, opts.Day)
			if err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: invalid day %q (expected YYYY-MM-DD)\n", opts.Day)
				return 2
			}
			day = parsed
		}
		info, err := c.Trigger(ctx, opts.Args[1], day)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			return encodeJSON(opts, map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
		}
		_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s as %s on queue %s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			return encodeJSON(opts, stats)
		}
		_, _ = fmt.Fprintf(opts.Stdout, "queue %s: pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown subcommand %q\n", opts.Args[0])
		return 2
	}
}

func encodeJSON(opts JobsOptions, v any) int {
	if err := json.NewEncoder(opts.Stdout).Encode(v); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: encode json: %v\n", err)
		return 1
	}
	return 0
}
