// Package consumer resolves one batch of subscribers and produces one
// delivery job per subscriber on the queue matching their method.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage"
)

// Queue is the slice of the substrate the consumer uses.
type Queue interface {
	AddBulk(ctx context.Context, jobs []queue.Job) error
}

// Consumer turns consume jobs into per-subscriber delivery jobs. Delivery
// failure and backoff must be tracked per subscriber, so there is no
// aggregation at this stage.
type Consumer struct {
	queue  Queue
	subs   storage.SubscriptionRepository
	worker *queue.Worker
	log    *slog.Logger
}

// New builds a consumer. worker may be nil in tests that drive Process
// directly.
func New(
	q Queue,
	subs storage.SubscriptionRepository,
	worker *queue.Worker,
	log *slog.Logger,
) *Consumer {
	return &Consumer{queue: q, subs: subs, worker: worker, log: log}
}

// Run starts the worker.
func (c *Consumer) Run(ctx context.Context) (func(context.Context) error, error) {
	c.worker.Handle(queue.JobConsumeBlock, c.Process)
	return c.worker.Run(ctx)
}

// Process handles one batch: re-resolve the batch's slice of the active
// subscriber set and enqueue one delivery job per subscriber as a single
// flow. The set may have drifted since divide time; a thinner batch is
// tolerated, not an error.
func (c *Consumer) Process(ctx context.Context, job *queue.ActiveJob) error {
	var payload domain.ConsumeJob
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	subscribers, err := c.subs.FindActiveSubscribers(
		ctx,
		payload.Chain.ID,
		payload.Method,
		payload.Pagination.Limit,
		payload.Pagination.Offset,
	)
	if err != nil {
		return err
	}
	if len(subscribers) == 0 {
		return nil
	}

	targetQueue, jobName, err := deliveryTarget(payload.Method)
	if err != nil {
		return err
	}

	jobs := make([]queue.Job, 0, len(subscribers))
	for _, sub := range subscribers {
		jobs = append(jobs, queue.Job{
			Queue: targetQueue,
			Name:  jobName,
			Payload: domain.DeliveryJob{
				Subscription: sub,
				Details:      sub.Details,
				Chain:        payload.Chain,
				Block:        payload.Block,
			},
		})
	}

	if err := c.queue.AddBulk(ctx, jobs); err != nil {
		return err
	}

	c.log.Info("enqueued deliveries",
		"height", payload.Block.Height,
		"method", payload.Method,
		"subscribers", len(jobs),
		"offset", payload.Pagination.Offset)
	return nil
}

func deliveryTarget(method domain.DeliveryMethod) (string, string, error) {
	switch method {
	case domain.DeliveryMethodWebhook:
		return queue.QueueBlockWebhook, queue.JobWebhookBlock, nil
	case domain.DeliveryMethodEmail:
		return queue.QueueBlockMailer, queue.JobMailBlock, nil
	default:
		return "", "", fmt.Errorf("unknown delivery method %q", method)
	}
}
