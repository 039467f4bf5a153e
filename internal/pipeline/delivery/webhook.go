package delivery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
)

const defaultContentType = "application/json"

// Webhook POSTs block payloads to subscriber endpoints.
type Webhook struct {
	http   *resty.Client
	queue  Queue
	worker *queue.Worker
	log    *slog.Logger
}

// NewWebhook builds a webhook worker. worker may be nil in tests that
// drive Process directly.
func NewWebhook(q Queue, worker *queue.Worker, log *slog.Logger) *Webhook {
	return &Webhook{
		http:   resty.New().SetTimeout(30 * time.Second),
		queue:  q,
		worker: worker,
		log:    log,
	}
}

// Run starts the worker.
func (w *Webhook) Run(ctx context.Context) (func(context.Context) error, error) {
	w.worker.Handle(queue.JobWebhookBlock, w.Process)
	return w.worker.Run(ctx)
}

// Process sends one block to one subscriber. Transport failures are
// returned so the substrate retries them; any HTTP response, including a
// rejection, is captured as the result and the job completes. The
// subscriber, not the pipeline, owns fixing a rejecting endpoint.
func (w *Webhook) Process(ctx context.Context, job *queue.ActiveJob) error {
	var payload domain.DeliveryJob
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	contentType := payload.Details.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	resp, err := w.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody([]byte(payload.Block.Payload)).
		Post(payload.Details.URL)
	if err != nil {
		metrics.Deliveries.WithLabelValues(string(domain.DeliveryMethodWebhook), "failed").Inc()
		return err
	}

	outcome := "sent"
	if resp.IsError() {
		outcome = "rejected"
	}
	metrics.Deliveries.WithLabelValues(string(domain.DeliveryMethodWebhook), outcome).Inc()

	entry := domain.InvocationLogEntry{
		SubscriptionID: payload.Subscription.ID,
		Metadata: domain.InvocationMetadata{
			Subscription: payload.Subscription,
			Details:      payload.Details,
			Result:       webhookResult(payload.Details.URL, resp),
		},
	}

	if err := w.queue.Add(ctx, newLogJob(entry)); err != nil {
		return err
	}

	w.log.Info("delivered webhook",
		"subscription", payload.Subscription.ID,
		"height", payload.Block.Height,
		"status", resp.StatusCode())
	return nil
}

func webhookResult(requestURL string, resp *resty.Response) domain.DeliveryResult {
	headers := make(map[string]string, len(resp.Header()))
	for key, values := range resp.Header() {
		headers[key] = strings.Join(values, ", ")
	}

	finalURL := requestURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	return domain.DeliveryResult{
		Status:     resp.StatusCode(),
		Headers:    headers,
		Body:       resp.String(),
		Redirected: finalURL != requestURL,
		URL:        finalURL,
		Type:       resp.Header().Get("Content-Type"),
	}
}
