// Package logger persists delivery outcomes to the invocation log.
package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
)

// Config holds logger settings.
type Config struct {
	// Retention is how long invocation log entries are kept. Zero
	// disables pruning.
	Retention time.Duration
}

// Logger batches invocation log entries into the store and prunes
// entries past retention. Insert failures surface as job failures and
// ride the substrate's retry policy; there is no application-level retry
// here.
type Logger struct {
	cfg    Config
	repo   storage.InvocationLogRepository
	worker *queue.Worker
	log    *slog.Logger
}

// New builds a logger. worker may be nil in tests that drive Process
// directly.
func New(cfg Config, repo storage.InvocationLogRepository, worker *queue.Worker, log *slog.Logger) *Logger {
	return &Logger{cfg: cfg, repo: repo, worker: worker, log: log}
}

// Run starts the worker and, when retention is configured, the prune
// loop.
func (l *Logger) Run(ctx context.Context) (func(context.Context) error, error) {
	l.worker.Handle(queue.JobLogBlock, l.Process)
	workerCleanup, err := l.worker.Run(ctx)
	if err != nil {
		return nil, err
	}

	if l.cfg.Retention <= 0 {
		return workerCleanup, nil
	}

	pruneCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.pruneLoop(pruneCtx)
	}()

	return func(stopCtx context.Context) error {
		cancel()
		<-done
		return workerCleanup(stopCtx)
	}, nil
}

// pruneLoop deletes expired entries on a cadence derived from the
// retention period, clamped between one minute and one hour.
func (l *Logger) pruneLoop(ctx context.Context) {
	interval := min(l.cfg.Retention/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.prune(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.prune(ctx)
		}
	}
}

func (l *Logger) prune(ctx context.Context) {
	deleted, err := l.repo.DeleteOlderThan(ctx, time.Now().Add(-l.cfg.Retention))
	if err != nil {
		l.log.Error("failed to prune invocation log", "error", err)
		return
	}
	if deleted > 0 {
		l.log.Info("pruned invocation log", "deleted", deleted)
	}
}

// Process persists one batch of entries with a single insert. An empty
// batch is a no-op.
func (l *Logger) Process(ctx context.Context, job *queue.ActiveJob) error {
	var entries []domain.InvocationLogEntry
	if err := job.DecodePayload(&entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	if err := l.repo.AppendBatch(ctx, entries); err != nil {
		return err
	}

	metrics.InvocationEntriesWritten.Add(float64(len(entries)))
	l.log.Debug("persisted invocation log entries", "count", len(entries))
	return nil
}
