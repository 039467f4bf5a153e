// Package divider splits the subscriber population for a block into
// bounded batches, one consume job per batch.
package divider

import (
	"context"
	"log/slog"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage"
)

// Queue is the slice of the substrate the divider uses.
type Queue interface {
	AddBulk(ctx context.Context, jobs []queue.Job) error
}

// Config holds divider settings.
type Config struct {
	// BatchSize bounds how many subscribers one consume job covers.
	BatchSize int64
}

// Divider fans one block out into consume jobs.
type Divider struct {
	cfg    Config
	queue  Queue
	subs   storage.SubscriptionRepository
	worker *queue.Worker
	log    *slog.Logger
}

// New builds a divider. worker may be nil in tests that drive Process
// directly.
func New(
	cfg Config,
	q Queue,
	subs storage.SubscriptionRepository,
	worker *queue.Worker,
	log *slog.Logger,
) *Divider {
	return &Divider{cfg: cfg, queue: q, subs: subs, worker: worker, log: log}
}

// Run starts the worker.
func (d *Divider) Run(ctx context.Context) (func(context.Context) error, error) {
	d.worker.Handle(queue.JobDivideBlock, d.Process)
	return d.worker.Run(ctx)
}

// Process handles one divide job: count active subscribers per method in
// a single snapshot, then enqueue every batch for every method as one
// atomic flow. A partial flow after a crash would silently drop a slice
// of the subscriber population, so all-or-nothing is required here.
func (d *Divider) Process(ctx context.Context, job *queue.ActiveJob) error {
	var payload domain.DivideJob
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	counts, err := d.subs.CountActiveByMethod(ctx, payload.Chain.ID)
	if err != nil {
		return err
	}

	var jobs []queue.Job
	for _, method := range []domain.DeliveryMethod{domain.DeliveryMethodWebhook, domain.DeliveryMethodEmail} {
		count := counts.Count(method)
		if count == 0 {
			continue
		}

		// The last batch can come out empty when count is an exact
		// multiple of the batch size; the consumer resolves zero rows for
		// it and moves on. A few wasted batches are preferred over
		// undercounting.
		batchCount := count/d.cfg.BatchSize + 1
		for i := int64(0); i < batchCount; i++ {
			jobs = append(jobs, queue.Job{
				Queue: queue.QueueBlockConsumer,
				Name:  queue.JobConsumeBlock,
				Payload: domain.ConsumeJob{
					Method: method,
					Chain:  payload.Chain,
					Block:  payload.Block,
					Pagination: domain.Pagination{
						Limit:  d.cfg.BatchSize,
						Offset: i * d.cfg.BatchSize,
					},
				},
			})
		}
	}

	if len(jobs) == 0 {
		d.log.Debug("no active subscribers", "height", payload.Block.Height)
		return nil
	}

	if err := d.queue.AddBulk(ctx, jobs); err != nil {
		return err
	}

	d.log.Info("divided block",
		"height", payload.Block.Height,
		"batches", len(jobs),
		"webhookSubscribers", counts.Webhook,
		"emailSubscribers", counts.Email)
	return nil
}
