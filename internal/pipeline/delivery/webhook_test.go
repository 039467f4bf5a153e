package delivery

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
)

type fakeQueue struct {
	added  []queue.Job
	addErr error
}

func (q *fakeQueue) Add(ctx context.Context, job queue.Job) error {
	if q.addErr != nil {
		return q.addErr
	}
	q.added = append(q.added, job)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func deliveryJob(t *testing.T, details domain.DeliveryDetails) *queue.ActiveJob {
	t.Helper()
	sub := domain.Subscription{
		ID:       "sub-1",
		UserID:   "user-1",
		Method:   domain.DeliveryMethodWebhook,
		IsActive: true,
		Details:  details,
	}
	payload, err := json.Marshal(domain.DeliveryJob{
		Subscription: sub,
		Details:      details,
		Chain:        domain.NewChainInfo(domain.ChainNameEthereum, "http://localhost:8545"),
		Block:        domain.Block{Height: 42, Payload: json.RawMessage(`{"number":42}`)},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return &queue.ActiveJob{Name: queue.JobWebhookBlock, Payload: payload}
}

func loggedEntry(t *testing.T, job queue.Job) domain.InvocationLogEntry {
	t.Helper()
	entries, ok := job.Payload.([]domain.InvocationLogEntry)
	if !ok || len(entries) != 1 {
		t.Fatalf("log job payload = %#v, want one entry", job.Payload)
	}
	return entries[0]
}

func TestWebhookProcessAccepted(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	q := &fakeQueue{}
	wh := NewWebhook(q, nil, testLogger())

	job := deliveryJob(t, domain.DeliveryDetails{URL: server.URL})
	if err := wh.Process(context.Background(), job); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if string(gotBody) != `{"number":42}` {
		t.Errorf("posted body = %s", gotBody)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q, want default application/json", gotContentType)
	}

	if len(q.added) != 1 {
		t.Fatalf("expected exactly one log job, got %d", len(q.added))
	}
	logJob := q.added[0]
	if logJob.Queue != queue.QueueBlockLogger || logJob.Name != queue.JobLogBlock {
		t.Errorf("log job routed to %s/%s", logJob.Queue, logJob.Name)
	}

	entry := loggedEntry(t, logJob)
	if entry.SubscriptionID != "sub-1" {
		t.Errorf("entry subscription = %s", entry.SubscriptionID)
	}
	result := entry.Metadata.Result
	if result.Status != http.StatusOK {
		t.Errorf("result status = %d, want 200", result.Status)
	}
	if result.Body != `{"ok":true}` {
		t.Errorf("result body = %q", result.Body)
	}
	if result.Type != "application/json" {
		t.Errorf("result type = %q", result.Type)
	}
	if result.Redirected {
		t.Error("result marked redirected without a redirect")
	}
	if result.URL != server.URL {
		t.Errorf("result url = %q, want %q", result.URL, server.URL)
	}
}

func TestWebhookProcessRejectionStillCompletes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no thanks", http.StatusInternalServerError)
	}))
	defer server.Close()

	q := &fakeQueue{}
	wh := NewWebhook(q, nil, testLogger())

	// A rejecting endpoint is the subscriber's problem; the job must
	// complete and the rejection must be auditable.
	job := deliveryJob(t, domain.DeliveryDetails{URL: server.URL})
	if err := wh.Process(context.Background(), job); err != nil {
		t.Fatalf("Process failed on endpoint rejection: %v", err)
	}

	if len(q.added) != 1 {
		t.Fatalf("expected one log job for the rejection, got %d", len(q.added))
	}
	entry := loggedEntry(t, q.added[0])
	if entry.Metadata.Result.Status != http.StatusInternalServerError {
		t.Errorf("result status = %d, want 500", entry.Metadata.Result.Status)
	}
}

func TestWebhookProcessRedirectRecorded(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()
	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusTemporaryRedirect)
	}))
	defer redirecting.Close()

	q := &fakeQueue{}
	wh := NewWebhook(q, nil, testLogger())

	job := deliveryJob(t, domain.DeliveryDetails{URL: redirecting.URL})
	if err := wh.Process(context.Background(), job); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	entry := loggedEntry(t, q.added[0])
	if !entry.Metadata.Result.Redirected {
		t.Error("expected result marked redirected")
	}
	if entry.Metadata.Result.URL != final.URL {
		t.Errorf("result url = %q, want final %q", entry.Metadata.Result.URL, final.URL)
	}
}

func TestWebhookProcessTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	q := &fakeQueue{}
	wh := NewWebhook(q, nil, testLogger())

	job := deliveryJob(t, domain.DeliveryDetails{URL: server.URL})
	if err := wh.Process(context.Background(), job); err == nil {
		t.Fatal("expected transport failure to surface for retry")
	}
	if len(q.added) != 0 {
		t.Errorf("expected no log job for a transport failure, got %d", len(q.added))
	}
}

func TestWebhookProcessCustomContentType(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
	}))
	defer server.Close()

	q := &fakeQueue{}
	wh := NewWebhook(q, nil, testLogger())

	job := deliveryJob(t, domain.DeliveryDetails{URL: server.URL, ContentType: "application/vnd.acme+json"})
	if err := wh.Process(context.Background(), job); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if gotContentType != "application/vnd.acme+json" {
		t.Errorf("content type = %q", gotContentType)
	}
}
