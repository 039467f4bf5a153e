// Package queue implements the durable job queue substrate on Redis
// Streams. Each named queue is one stream plus a sorted set of delayed
// jobs; workers consume through a consumer group. Multi-job enqueues run
// inside a single Lua script so they are all-or-nothing.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue names for the block distribution pipeline.
const (
	QueueBlockFetcher  = "block-fetcher"
	QueueBlockDivider  = "block-divider"
	QueueBlockConsumer = "block-consumer"
	QueueBlockWebhook  = "block-webhook"
	QueueBlockMailer   = "block-mailer"
	QueueBlockLogger   = "block-logger"
)

// Job names processed within those queues.
const (
	JobFetchBlock   = "fetch-block"
	JobDivideBlock  = "divide-block"
	JobConsumeBlock = "consume-block"
	JobWebhookBlock = "webhook-block"
	JobMailBlock    = "mail-block"
	JobLogBlock     = "log-block"
)

const (
	// DefaultAttempts is the attempt budget for genuine faults.
	DefaultAttempts = 5

	// DefaultBackoff is the fixed delay between retry attempts.
	DefaultBackoff = 1000 * time.Millisecond

	// dedupTTL bounds how long a completed job id blocks re-enqueues.
	// Heights are monotonic so ids are never legitimately reused.
	dedupTTL = 24 * time.Hour

	// dataField is the single stream field holding the JSON-encoded
	// envelope. Keeping the payload nested under one field makes the Lua
	// bulk-XADD scripts trivial.
	dataField = "data"
)

// Options control how a job is enqueued.
type Options struct {
	// JobID, when set, deduplicates: enqueueing a second job with the same
	// id on the same queue is a no-op.
	JobID string

	// Delay postpones the job's first execution.
	Delay time.Duration

	// Attempts overrides the default attempt budget (0 means default).
	Attempts int

	// Backoff overrides the default fixed retry delay (0 means default).
	Backoff time.Duration
}

// Job is one unit of work to enqueue.
type Job struct {
	Queue   string
	Name    string
	Payload any
	Opts    Options
}

// envelope is the wire form of a job inside a stream entry or the delayed
// set. Attempt travels with the job so retries survive process restarts.
type envelope struct {
	JobID       string          `json:"jobId,omitempty"`
	Name        string          `json:"name"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"maxAttempts"`
	BackoffMs   int64           `json:"backoffMs"`
	Payload     json.RawMessage `json:"payload"`
}

// Client issues enqueue and inspection operations against the substrate.
type Client struct {
	rdb redis.UniversalClient
}

// NewClient wraps an established Redis connection.
func NewClient(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

func streamKey(queue string) string  { return "bf:queue:" + queue }
func delayedKey(queue string) string { return "bf:queue:" + queue + ":delayed" }

func dedupKey(queue, jobID string) string {
	if jobID == "" {
		// Placeholder so the flow script always receives three keys per
		// job; the script never touches it when dedup is off.
		return "bf:queue:" + queue + ":ids:_"
	}
	return "bf:queue:" + queue + ":ids:" + jobID
}

// Add enqueues a single job.
func (c *Client) Add(ctx context.Context, job Job) error {
	return c.AddBulk(ctx, []Job{job})
}

// AddBulk atomically enqueues every job in the flow. Either all jobs are
// durably written or none are; a crash mid-call can never leave a partial
// flow visible to a consumer.
func (c *Client) AddBulk(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}

	keys := make([]string, 0, 3*len(jobs))
	argv := make([]any, 0, 2+4*len(jobs))
	argv = append(argv, len(jobs), dataField)

	now := time.Now()
	for _, job := range jobs {
		env := envelope{
			JobID:       job.Opts.JobID,
			Name:        job.Name,
			MaxAttempts: job.Opts.Attempts,
			BackoffMs:   job.Opts.Backoff.Milliseconds(),
		}
		if env.MaxAttempts == 0 {
			env.MaxAttempts = DefaultAttempts
		}
		if env.BackoffMs == 0 {
			env.BackoffMs = DefaultBackoff.Milliseconds()
		}

		payload, err := json.Marshal(job.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload for job %q: %w", job.Name, err)
		}
		env.Payload = payload

		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to encode job %q: %w", job.Name, err)
		}

		hasDedup := "0"
		if job.Opts.JobID != "" {
			hasDedup = "1"
		}
		score := int64(0)
		if job.Opts.Delay > 0 {
			score = now.Add(job.Opts.Delay).UnixMilli()
		}

		keys = append(keys, streamKey(job.Queue), delayedKey(job.Queue), dedupKey(job.Queue, job.Opts.JobID))
		argv = append(argv, hasDedup, int64(dedupTTL.Seconds()), score, string(body))
	}

	if err := flowScript.Run(ctx, c.rdb, keys, argv...).Err(); err != nil {
		return fmt.Errorf("failed to enqueue flow: %w", err)
	}
	return nil
}

// Count returns the number of jobs waiting on the queue, including
// delayed jobs that have not come due yet.
func (c *Client) Count(ctx context.Context, queue string) (int64, error) {
	pipe := c.rdb.Pipeline()
	ready := pipe.XLen(ctx, streamKey(queue))
	delayed := pipe.ZCard(ctx, delayedKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count queue %q: %w", queue, err)
	}
	return ready.Val() + delayed.Val(), nil
}

// Purge removes every waiting job, delayed job, and dedup marker for a
// queue. Operator tooling only; workers on the queue simply see it empty.
func (c *Client) Purge(ctx context.Context, queue string) error {
	if err := c.rdb.Del(ctx, streamKey(queue), delayedKey(queue)).Err(); err != nil {
		return fmt.Errorf("failed to purge queue %q: %w", queue, err)
	}

	iter := c.rdb.Scan(ctx, 0, "bf:queue:"+queue+":ids:*", 100).Iterator()
	var ids []string
	for iter.Next(ctx) {
		ids = append(ids, iter.Val())
		if len(ids) == 100 {
			if err := c.rdb.Del(ctx, ids...).Err(); err != nil {
				return fmt.Errorf("failed to purge dedup ids on %q: %w", queue, err)
			}
			ids = ids[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan dedup ids on %q: %w", queue, err)
	}
	if len(ids) > 0 {
		if err := c.rdb.Del(ctx, ids...).Err(); err != nil {
			return fmt.Errorf("failed to purge dedup ids on %q: %w", queue, err)
		}
	}
	return nil
}

// promote moves jobs whose delay has expired from the delayed set onto the
// stream. Safe to call from any number of workers concurrently.
func (c *Client) promote(ctx context.Context, queue string, limit int64) error {
	err := promoteScript.Run(
		ctx,
		c.rdb,
		[]string{delayedKey(queue), streamKey(queue)},
		dataField,
		time.Now().UnixMilli(),
		limit,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to promote delayed jobs on %q: %w", queue, err)
	}
	return nil
}

// reschedule puts an already-consumed envelope back on the delayed set.
// It bypasses dedup on purpose: the job id was claimed when the job was
// first enqueued and must not block its own retry.
func (c *Client) reschedule(ctx context.Context, queue string, env envelope, delay time.Duration) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode job %q: %w", env.Name, err)
	}
	score := time.Now().Add(delay).UnixMilli()
	if err := c.rdb.ZAdd(ctx, delayedKey(queue), redis.Z{Score: float64(score), Member: string(body)}).Err(); err != nil {
		return fmt.Errorf("failed to reschedule job %q: %w", env.Name, err)
	}
	return nil
}
