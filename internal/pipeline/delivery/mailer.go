package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/mail"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
)

// Mailer emails block payloads to subscriber addresses.
type Mailer struct {
	sender mail.Sender
	queue  Queue
	worker *queue.Worker
	log    *slog.Logger
}

// NewMailer builds a mailer worker. worker may be nil in tests that drive
// Process directly.
func NewMailer(sender mail.Sender, q Queue, worker *queue.Worker, log *slog.Logger) *Mailer {
	return &Mailer{sender: sender, queue: q, worker: worker, log: log}
}

// Run starts the worker.
func (m *Mailer) Run(ctx context.Context) (func(context.Context) error, error) {
	m.worker.Handle(queue.JobMailBlock, m.Process)
	return m.worker.Run(ctx)
}

// Process sends one block to one subscriber address. Provider errors are
// returned so the substrate retries them; an accepted send records the
// provider's message id as the result.
func (m *Mailer) Process(ctx context.Context, job *queue.ActiveJob) error {
	var payload domain.DeliveryJob
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	messageID, err := m.sender.Send(
		ctx,
		payload.Details.Email,
		MailSubject,
		prettyJSON(payload.Block.Payload),
	)
	if err != nil {
		metrics.Deliveries.WithLabelValues(string(domain.DeliveryMethodEmail), "failed").Inc()
		return err
	}
	metrics.Deliveries.WithLabelValues(string(domain.DeliveryMethodEmail), "sent").Inc()

	entry := domain.InvocationLogEntry{
		SubscriptionID: payload.Subscription.ID,
		Metadata: domain.InvocationMetadata{
			Subscription: payload.Subscription,
			Details:      payload.Details,
			Result:       domain.DeliveryResult{MessageID: messageID},
		},
	}

	if err := m.queue.Add(ctx, newLogJob(entry)); err != nil {
		return err
	}

	m.log.Info("delivered email",
		"subscription", payload.Subscription.ID,
		"height", payload.Block.Height,
		"messageId", messageID)
	return nil
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
