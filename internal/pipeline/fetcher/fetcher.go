// Package fetcher polls the chain for new heights and emits one divide
// job per block, strictly in height order.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/chain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
)

// Queue is the slice of the substrate the fetcher uses.
type Queue interface {
	Add(ctx context.Context, job queue.Job) error
	AddBulk(ctx context.Context, jobs []queue.Job) error
	Count(ctx context.Context, queue string) (int64, error)
}

// Config holds fetcher settings.
type Config struct {
	// PollInterval is how long to wait before trying the next height.
	PollInterval time.Duration

	// MaxQueueLen bounds the fetch queue; beyond it the fetcher backs off
	// instead of piling up work.
	MaxQueueLen int64
}

// Fetcher walks the chain one height at a time. All state lives in the
// queue: each processed job enqueues its successor, so heights advance
// strictly and exactly once.
type Fetcher struct {
	cfg     Config
	adapter chain.Adapter
	queue   Queue
	cursors storage.CursorRepository
	worker  *queue.Worker
	log     *slog.Logger
}

// New builds a fetcher. worker may be nil in tests that drive Seed and
// Process directly.
func New(
	cfg Config,
	adapter chain.Adapter,
	q Queue,
	cursors storage.CursorRepository,
	worker *queue.Worker,
	log *slog.Logger,
) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		adapter: adapter,
		queue:   q,
		cursors: cursors,
		worker:  worker,
		log:     log,
	}
}

// JobID derives the stable, height-based job id that collapses duplicate
// fetch attempts for the same height.
func JobID(height uint64) string {
	return fmt.Sprintf("j-%d", height)
}

// Run bootstraps the cursor row, seeds the queue if empty, and starts the
// worker.
func (f *Fetcher) Run(ctx context.Context) (func(context.Context) error, error) {
	if err := f.cursors.Upsert(ctx, f.adapter.Info()); err != nil {
		return nil, err
	}
	if err := f.Seed(ctx); err != nil {
		return nil, err
	}
	f.worker.Handle(queue.JobFetchBlock, f.Process)
	return f.worker.Run(ctx)
}

// Seed enqueues the initial fetch job at the chain's current head if the
// queue is empty. The height-derived job id makes re-seeding idempotent:
// a second seed against a non-empty queue, or a concurrent seed racing
// for the same height, is a no-op.
func (f *Fetcher) Seed(ctx context.Context) error {
	count, err := f.queue.Count(ctx, queue.QueueBlockFetcher)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	latest, err := f.adapter.LatestBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to get seed height: %w", err)
	}

	f.log.Info("seeding fetch queue", "height", latest)
	return f.queue.Add(ctx, queue.Job{
		Queue:   queue.QueueBlockFetcher,
		Name:    queue.JobFetchBlock,
		Payload: domain.FetchJob{Height: latest},
		Opts:    queue.Options{JobID: JobID(latest)},
	})
}

// Process handles one fetch job. On success it atomically enqueues the
// successor fetch job and the divide job for this height; a crash between
// the two is impossible, so the pipeline can neither skip a height nor
// dispatch one twice.
func (f *Fetcher) Process(ctx context.Context, job *queue.ActiveJob) error {
	var payload domain.FetchJob
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	info := f.adapter.Info()

	// Back off while the queue is congested rather than stacking more
	// work onto it. This is not a fault, so no attempt is consumed.
	count, err := f.queue.Count(ctx, queue.QueueBlockFetcher)
	if err != nil {
		return err
	}
	if f.cfg.MaxQueueLen > 0 && count >= f.cfg.MaxQueueLen {
		f.log.Warn("fetch queue congested", "count", count, "max", f.cfg.MaxQueueLen)
		return &queue.RetryLater{Delay: f.cfg.PollInterval}
	}

	latest, err := f.adapter.LatestBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest height: %w", err)
	}
	metrics.ChainLatestHeight.WithLabelValues(string(info.Name)).Set(float64(latest))

	// The requested height does not exist yet. Expected and recurring
	// whenever the fetcher has caught up with the head, so it must not
	// compete with the attempt budget reserved for genuine faults.
	if payload.Height > latest {
		return &queue.RetryLater{Delay: f.cfg.PollInterval}
	}

	block, err := f.adapter.BlockAtHeight(ctx, payload.Height)
	if err != nil {
		return fmt.Errorf("failed to fetch block %d: %w", payload.Height, err)
	}

	err = f.queue.AddBulk(ctx, []queue.Job{
		{
			Queue:   queue.QueueBlockFetcher,
			Name:    queue.JobFetchBlock,
			Payload: domain.FetchJob{Height: payload.Height + 1},
			Opts: queue.Options{
				JobID: JobID(payload.Height + 1),
				Delay: f.cfg.PollInterval,
			},
		},
		{
			Queue:   queue.QueueBlockDivider,
			Name:    queue.JobDivideBlock,
			Payload: domain.DivideJob{Chain: info, Block: block},
		},
	})
	if err != nil {
		return err
	}

	metrics.BlocksFetched.WithLabelValues(string(info.Name)).Inc()
	metrics.FetchedHeight.WithLabelValues(string(info.Name)).Set(float64(payload.Height))
	f.log.Info("dispatched block", "height", payload.Height, "chain", info.Name)
	return nil
}
