package pipeline_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/consumer"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/delivery"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/divider"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/fetcher"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/logger"
)

// memQueue is an in-memory stand-in for the queue substrate. It satisfies
// every stage's queue interface and lets the test pump jobs from stage to
// stage synchronously.
type memQueue struct {
	jobs map[string][]queue.Job
	seen map[string]bool
}

func newMemQueue() *memQueue {
	return &memQueue{
		jobs: make(map[string][]queue.Job),
		seen: make(map[string]bool),
	}
}

func (q *memQueue) Add(ctx context.Context, job queue.Job) error {
	return q.AddBulk(ctx, []queue.Job{job})
}

func (q *memQueue) AddBulk(ctx context.Context, jobs []queue.Job) error {
	for _, job := range jobs {
		if job.Opts.JobID != "" {
			key := job.Queue + "/" + job.Opts.JobID
			if q.seen[key] {
				continue
			}
			q.seen[key] = true
		}
		q.jobs[job.Queue] = append(q.jobs[job.Queue], job)
	}
	return nil
}

func (q *memQueue) Count(ctx context.Context, queueName string) (int64, error) {
	return int64(len(q.jobs[queueName])), nil
}

// pop removes and returns the oldest job on a queue as an ActiveJob.
func (q *memQueue) pop(t *testing.T, queueName string) *queue.ActiveJob {
	t.Helper()
	pending := q.jobs[queueName]
	if len(pending) == 0 {
		t.Fatalf("no jobs waiting on %s", queueName)
	}
	job := pending[0]
	q.jobs[queueName] = pending[1:]

	payload, err := json.Marshal(job.Payload)
	if err != nil {
		t.Fatalf("failed to encode %s payload: %v", job.Name, err)
	}
	return &queue.ActiveJob{ID: job.Opts.JobID, Name: job.Name, Payload: payload}
}

type memAdapter struct {
	latest uint64
}

func (a *memAdapter) LatestBlockHeight(ctx context.Context) (uint64, error) {
	return a.latest, nil
}

func (a *memAdapter) BlockAtHeight(ctx context.Context, height uint64) (domain.Block, error) {
	payload, _ := json.Marshal(map[string]uint64{"number": height})
	return domain.Block{Height: height, Payload: payload}, nil
}

func (a *memAdapter) Info() domain.ChainInfo {
	return domain.NewChainInfo(domain.ChainNameEthereum, "http://localhost:8545")
}

func (a *memAdapter) Close() error { return nil }

type memSubRepo struct {
	subscribers []domain.Subscription
}

func (r *memSubRepo) CountActiveByMethod(ctx context.Context, cursorID string) (domain.MethodCounts, error) {
	var counts domain.MethodCounts
	for _, sub := range r.subscribers {
		switch sub.Method {
		case domain.DeliveryMethodWebhook:
			counts.Webhook++
		case domain.DeliveryMethodEmail:
			counts.Email++
		}
	}
	return counts, nil
}

func (r *memSubRepo) FindActiveSubscribers(
	ctx context.Context,
	cursorID string,
	method domain.DeliveryMethod,
	limit, offset int64,
) ([]domain.Subscription, error) {
	var matched []domain.Subscription
	for _, sub := range r.subscribers {
		if sub.Method == method {
			matched = append(matched, sub)
		}
	}
	if offset >= int64(len(matched)) {
		return nil, nil
	}
	end := min(offset+limit, int64(len(matched)))
	return matched[offset:end], nil
}

type memCursorRepo struct{}

func (r *memCursorRepo) Upsert(ctx context.Context, chain domain.ChainInfo) error { return nil }

type memLogRepo struct {
	entries []domain.InvocationLogEntry
}

func (r *memLogRepo) AppendBatch(ctx context.Context, entries []domain.InvocationLogEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// TestBlockFlowsFromChainToInvocationLog walks one block through every
// stage: seed, fetch, divide, consume, webhook delivery, and the
// invocation log.
func TestBlockFlowsFromChainToInvocationLog(t *testing.T) {
	var delivered []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := newMemQueue()
	subs := &memSubRepo{subscribers: []domain.Subscription{{
		ID:       "sub-1",
		UserID:   "user-1",
		Method:   domain.DeliveryMethodWebhook,
		IsActive: true,
		Details:  domain.DeliveryDetails{URL: server.URL},
	}}}
	logRepo := &memLogRepo{}

	fetch := fetcher.New(
		fetcher.Config{PollInterval: time.Millisecond, MaxQueueLen: 100},
		&memAdapter{latest: 10},
		q,
		&memCursorRepo{},
		nil,
		log,
	)
	divide := divider.New(divider.Config{BatchSize: 50}, q, subs, nil, log)
	consume := consumer.New(q, subs, nil, log)
	webhook := delivery.NewWebhook(q, nil, log)
	logStage := logger.New(logger.Config{}, logRepo, nil, log)

	if err := fetch.Seed(ctx); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := fetch.Process(ctx, q.pop(t, queue.QueueBlockFetcher)); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if err := divide.Process(ctx, q.pop(t, queue.QueueBlockDivider)); err != nil {
		t.Fatalf("divide failed: %v", err)
	}
	if err := consume.Process(ctx, q.pop(t, queue.QueueBlockConsumer)); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if err := webhook.Process(ctx, q.pop(t, queue.QueueBlockWebhook)); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	if err := logStage.Process(ctx, q.pop(t, queue.QueueBlockLogger)); err != nil {
		t.Fatalf("logger failed: %v", err)
	}

	if string(delivered) != `{"number":10}` {
		t.Errorf("delivered payload = %s, want block 10", delivered)
	}

	if len(logRepo.entries) != 1 {
		t.Fatalf("expected 1 invocation log entry, got %d", len(logRepo.entries))
	}
	entry := logRepo.entries[0]
	if entry.SubscriptionID != "sub-1" {
		t.Errorf("entry subscription = %s", entry.SubscriptionID)
	}
	if entry.Metadata.Result.Status != http.StatusOK {
		t.Errorf("entry status = %d, want 200", entry.Metadata.Result.Status)
	}

	// The fetcher must have left exactly one successor waiting at the
	// next height.
	next := q.pop(t, queue.QueueBlockFetcher)
	var payload domain.FetchJob
	if err := next.DecodePayload(&payload); err != nil {
		t.Fatalf("decode successor: %v", err)
	}
	if payload.Height != 11 {
		t.Errorf("successor height = %d, want 11", payload.Height)
	}
}
