package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
)

const (
	// readBlock is how long a worker loop blocks waiting for new jobs
	// before cycling back to promote delayed ones.
	readBlock = 2 * time.Second

	// claimMinIdle is how long a pending entry must sit unacked before
	// another consumer steals it. Covers consumers that crashed mid-job.
	claimMinIdle = time.Minute

	// promoteBatch bounds how many delayed jobs one loop iteration moves
	// onto the stream.
	promoteBatch = 100
)

// RetryLater signals that a job's input is not available yet and the job
// should be re-scheduled without consuming an attempt. It is distinct from
// a failure: "the next block does not exist yet" is expected and recurring,
// so it must not compete with the attempt budget reserved for faults.
type RetryLater struct {
	Delay time.Duration
}

func (e *RetryLater) Error() string {
	return fmt.Sprintf("not available yet, retry in %s", e.Delay)
}

// ActiveJob is a job handed to a handler.
type ActiveJob struct {
	ID      string
	Name    string
	Attempt int
	Payload []byte
}

// DecodePayload unmarshals the job payload into v.
func (j *ActiveJob) DecodePayload(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %q payload: %w", j.Name, err)
	}
	return nil
}

// Handler processes one job. A returned *RetryLater re-schedules the job
// attempt-free; any other error consumes an attempt and is retried with
// the job's fixed backoff until the budget runs out, after which the job
// is dropped.
type Handler func(ctx context.Context, job *ActiveJob) error

// Worker consumes jobs from one queue through a consumer group.
// It implements the service lifecycle contract: Run starts the worker
// loops and returns a cleanup that drains them.
type Worker struct {
	client      *Client
	rdb         redis.UniversalClient
	queue       string
	group       string
	consumer    string
	concurrency int
	handlers    map[string]Handler
	log         *slog.Logger

	// Seams for the settle path, overridden in tests.
	rescheduleFn func(ctx context.Context, env envelope, delay time.Duration) error
	ackFn        func(ctx context.Context, msgID string)
}

// WorkerConfig configures a queue worker.
type WorkerConfig struct {
	Queue       string
	Concurrency int
}

// NewWorker builds a worker for the given queue. Handlers are registered
// with Handle before Run is called.
func NewWorker(rdb redis.UniversalClient, cfg WorkerConfig, log *slog.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	w := &Worker{
		client:      NewClient(rdb),
		rdb:         rdb,
		queue:       cfg.Queue,
		group:       cfg.Queue + "-group",
		consumer:    cfg.Queue + "-" + uuid.NewString(),
		concurrency: cfg.Concurrency,
		handlers:    make(map[string]Handler),
		log:         log.With("queue", cfg.Queue),
	}
	w.rescheduleFn = func(ctx context.Context, env envelope, delay time.Duration) error {
		return w.client.reschedule(ctx, w.queue, env, delay)
	}
	w.ackFn = w.ack
	return w
}

// Handle registers the handler for a job name. Must be called before Run.
func (w *Worker) Handle(name string, h Handler) {
	w.handlers[name] = h
}

// Run creates the consumer group and starts the worker pool. The returned
// cleanup stops pulling new jobs, waits for in-flight handlers to finish,
// then returns.
func (w *Worker) Run(ctx context.Context) (func(context.Context) error, error) {
	err := w.rdb.XGroupCreateMkStream(ctx, streamKey(w.queue), w.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group for %q: %w", w.queue, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(loopCtx)
	for i := 0; i < w.concurrency; i++ {
		name := fmt.Sprintf("%s-%d", w.consumer, i)
		eg.Go(func() error {
			w.consumeLoop(egCtx, name)
			return nil
		})
	}

	cleanup := func(context.Context) error {
		cancel()
		return eg.Wait()
	}
	return cleanup, nil
}

func (w *Worker) consumeLoop(ctx context.Context, consumer string) {
	w.log.Info("worker online", "consumer", consumer)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.client.promote(ctx, w.queue, promoteBatch); err != nil && ctx.Err() == nil {
			w.log.Error("promote failed", "error", err)
		}

		if err := w.claimStale(ctx, consumer); err != nil && ctx.Err() == nil {
			w.log.Error("claim failed", "error", err)
		}

		streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{streamKey(w.queue), ">"},
			Group:    w.group,
			Consumer: consumer,
			Count:    1,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.log.Error("read failed", "error", err)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				w.process(ctx, msg)
			}
		}
	}
}

// claimStale takes over pending entries whose original consumer went
// silent, so a crashed process cannot strand its in-flight jobs.
func (w *Worker) claimStale(ctx context.Context, consumer string) error {
	msgs, _, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   streamKey(w.queue),
		Group:    w.group,
		Consumer: consumer,
		MinIdle:  claimMinIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, msg := range msgs {
		w.process(ctx, msg)
	}
	return nil
}

func (w *Worker) process(ctx context.Context, msg redis.XMessage) {
	// Shutdown must drain in-flight jobs, not abort them: once a job has
	// been read it runs on a context that outlives the loop's
	// cancellation.
	ctx = context.WithoutCancel(ctx)

	env, err := decodeEnvelope(msg)
	if err != nil {
		w.log.Error("dropping undecodable job", "id", msg.ID, "error", err)
		w.ack(ctx, msg.ID)
		return
	}

	handler, ok := w.handlers[env.Name]
	if !ok {
		w.log.Error("dropping job with no handler", "name", env.Name, "id", msg.ID)
		w.ack(ctx, msg.ID)
		return
	}

	job := &ActiveJob{
		ID:      env.JobID,
		Name:    env.Name,
		Attempt: env.Attempt,
		Payload: env.Payload,
	}

	w.settle(ctx, msg.ID, env, handler(ctx, job))
}

// outcome is the fate of a stream entry after its handler has run.
type outcome int

const (
	outcomeComplete outcome = iota
	outcomeDelay
	outcomeRetry
	outcomeDrop
)

// settleJob decides an entry's fate from its handler error. A RetryLater
// delays with the attempt count unchanged; any other error increments the
// attempt, retrying with the job's fixed backoff until the incremented
// attempt would reach the budget, at which point the job is dropped. For
// delay and retry the returned envelope is the one to reschedule.
func settleJob(env envelope, handlerErr error) (outcome, envelope, time.Duration) {
	if handlerErr == nil {
		return outcomeComplete, env, 0
	}

	var later *RetryLater
	if errors.As(handlerErr, &later) {
		return outcomeDelay, env, later.Delay
	}

	if env.Attempt+1 >= env.MaxAttempts {
		return outcomeDrop, env, 0
	}

	env.Attempt++
	return outcomeRetry, env, time.Duration(env.BackoffMs) * time.Millisecond
}

// settle applies the decision for a processed entry. The entry is acked
// only once the decision has durably landed: if a reschedule fails, the
// entry stays pending so claimStale re-delivers it after claimMinIdle,
// instead of the ack destroying a job that still has attempt budget.
func (w *Worker) settle(ctx context.Context, msgID string, env envelope, handlerErr error) {
	out, next, delay := settleJob(env, handlerErr)

	switch out {
	case outcomeComplete:
		metrics.JobsProcessed.WithLabelValues(w.queue, "completed").Inc()
		w.log.Debug("completed job", "name", env.Name, "id", msgID)

	case outcomeDelay:
		metrics.JobsProcessed.WithLabelValues(w.queue, "delayed").Inc()
		if err := w.rescheduleFn(ctx, next, delay); err != nil {
			w.log.Error("failed to delay job, leaving entry pending",
				"name", env.Name, "id", msgID, "error", err)
			return
		}

	case outcomeRetry:
		metrics.JobsProcessed.WithLabelValues(w.queue, "retried").Inc()
		w.log.Warn("job failed, retrying",
			"name", env.Name, "id", msgID, "attempt", next.Attempt, "error", handlerErr)
		if err := w.rescheduleFn(ctx, next, delay); err != nil {
			w.log.Error("failed to reschedule job, leaving entry pending",
				"name", env.Name, "id", msgID, "error", err)
			return
		}

	case outcomeDrop:
		metrics.JobsProcessed.WithLabelValues(w.queue, "dropped").Inc()
		w.log.Error("dropping job after final attempt",
			"name", env.Name, "id", msgID, "attempts", env.Attempt+1, "error", handlerErr)
	}

	w.ackFn(ctx, msgID)
}

func (w *Worker) ack(ctx context.Context, msgID string) {
	pipe := w.rdb.Pipeline()
	pipe.XAck(ctx, streamKey(w.queue), w.group, msgID)
	pipe.XDel(ctx, streamKey(w.queue), msgID)
	if _, err := pipe.Exec(ctx); err != nil && ctx.Err() == nil {
		w.log.Error("failed to ack message", "id", msgID, "error", err)
	}
}

func decodeEnvelope(msg redis.XMessage) (envelope, error) {
	var env envelope
	raw, ok := msg.Values[dataField]
	if !ok {
		return env, fmt.Errorf("field %q missing from stream entry %q", dataField, msg.ID)
	}
	if err := json.Unmarshal([]byte(fmt.Sprint(raw)), &env); err != nil {
		return env, fmt.Errorf("failed to decode stream entry %q: %w", msg.ID, err)
	}
	return env, nil
}
