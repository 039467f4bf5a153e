package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testEnvelope() envelope {
	return envelope{
		JobID:       "j-7",
		Name:        JobFetchBlock,
		Attempt:     0,
		MaxAttempts: DefaultAttempts,
		BackoffMs:   DefaultBackoff.Milliseconds(),
		Payload:     json.RawMessage(`{"height":7}`),
	}
}

func TestSettleJobSuccess(t *testing.T) {
	out, _, _ := settleJob(testEnvelope(), nil)
	if out != outcomeComplete {
		t.Errorf("outcome = %d, want complete", out)
	}
}

func TestSettleJobRetryLaterKeepsAttempt(t *testing.T) {
	env := testEnvelope()
	env.Attempt = 3

	out, next, delay := settleJob(env, &RetryLater{Delay: 5 * time.Second})
	if out != outcomeDelay {
		t.Fatalf("outcome = %d, want delay", out)
	}
	if next.Attempt != 3 {
		t.Errorf("attempt = %d, want unchanged 3", next.Attempt)
	}
	if delay != 5*time.Second {
		t.Errorf("delay = %v, want the RetryLater delay", delay)
	}
}

func TestSettleJobFailureConsumesAttempt(t *testing.T) {
	env := testEnvelope()

	out, next, delay := settleJob(env, errors.New("rpc unavailable"))
	if out != outcomeRetry {
		t.Fatalf("outcome = %d, want retry", out)
	}
	if next.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", next.Attempt)
	}
	if delay != DefaultBackoff {
		t.Errorf("delay = %v, want the fixed backoff", delay)
	}
}

func TestSettleJobDropsAtBudget(t *testing.T) {
	env := testEnvelope()
	env.Attempt = env.MaxAttempts - 1

	out, _, _ := settleJob(env, errors.New("rpc unavailable"))
	if out != outcomeDrop {
		t.Errorf("outcome = %d, want drop on the final attempt", out)
	}
}

func TestSettleJobFailuresDropAfterBudget(t *testing.T) {
	env := testEnvelope()

	for i := 0; i < env.MaxAttempts-1; i++ {
		out, next, _ := settleJob(env, errors.New("rpc unavailable"))
		if out != outcomeRetry {
			t.Fatalf("failure %d: outcome = %d, want retry", i+1, out)
		}
		env = next
	}
	if env.Attempt != env.MaxAttempts-1 {
		t.Fatalf("attempt = %d after %d failures", env.Attempt, env.MaxAttempts-1)
	}

	out, _, _ := settleJob(env, errors.New("rpc unavailable"))
	if out != outcomeDrop {
		t.Errorf("failure %d: outcome = %d, want drop", env.MaxAttempts, out)
	}
}

func TestSettleJobNotAvailableDoesNotConsumeAttempts(t *testing.T) {
	env := testEnvelope()

	// A job that finds its input missing five times in a row must still
	// have its full attempt budget for a sixth run.
	for i := 0; i < 5; i++ {
		out, next, _ := settleJob(env, &RetryLater{Delay: time.Second})
		if out != outcomeDelay {
			t.Fatalf("delay %d: outcome = %d, want delay", i+1, out)
		}
		env = next
	}
	if env.Attempt != 0 {
		t.Fatalf("attempt = %d after repeated delays, want 0", env.Attempt)
	}

	out, next, _ := settleJob(env, errors.New("rpc unavailable"))
	if out != outcomeRetry {
		t.Errorf("outcome = %d, want retry with full budget left", out)
	}
	if next.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", next.Attempt)
	}
}

// settleWorker builds a worker whose reschedule and ack seams are
// recorded, so the settle path runs without a broker.
func settleWorker(rescheduleErr error) (*Worker, *settleRecorder) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(nil, WorkerConfig{Queue: QueueBlockFetcher}, log)

	rec := &settleRecorder{rescheduleErr: rescheduleErr}
	w.rescheduleFn = rec.reschedule
	w.ackFn = rec.ack
	return w, rec
}

type settleRecorder struct {
	rescheduleErr error

	rescheduled []envelope
	delays      []time.Duration
	acked       []string
}

func (r *settleRecorder) reschedule(ctx context.Context, env envelope, delay time.Duration) error {
	if r.rescheduleErr != nil {
		return r.rescheduleErr
	}
	r.rescheduled = append(r.rescheduled, env)
	r.delays = append(r.delays, delay)
	return nil
}

func (r *settleRecorder) ack(ctx context.Context, msgID string) {
	r.acked = append(r.acked, msgID)
}

func TestSettleAcksAfterRescheduleLands(t *testing.T) {
	w, rec := settleWorker(nil)

	w.settle(context.Background(), "1-0", testEnvelope(), errors.New("rpc unavailable"))

	if len(rec.rescheduled) != 1 {
		t.Fatalf("expected 1 reschedule, got %d", len(rec.rescheduled))
	}
	if rec.rescheduled[0].Attempt != 1 {
		t.Errorf("rescheduled attempt = %d, want 1", rec.rescheduled[0].Attempt)
	}
	if len(rec.acked) != 1 || rec.acked[0] != "1-0" {
		t.Errorf("acked = %v, want [1-0]", rec.acked)
	}
}

func TestSettleLeavesEntryPendingWhenRescheduleFails(t *testing.T) {
	// If the reschedule write is lost, acking would destroy the job's
	// remaining attempt budget; the entry must stay pending instead so a
	// claimer re-delivers it.
	tests := []struct {
		name       string
		handlerErr error
	}{
		{name: "failed job", handlerErr: errors.New("rpc unavailable")},
		{name: "delayed job", handlerErr: &RetryLater{Delay: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rec := settleWorker(errors.New("connection refused"))

			w.settle(context.Background(), "1-0", testEnvelope(), tt.handlerErr)

			if len(rec.acked) != 0 {
				t.Errorf("entry acked despite failed reschedule: %v", rec.acked)
			}
		})
	}
}

func TestSettleAcksCompletedAndDroppedJobs(t *testing.T) {
	dropReady := testEnvelope()
	dropReady.Attempt = dropReady.MaxAttempts - 1

	tests := []struct {
		name       string
		env        envelope
		handlerErr error
	}{
		{name: "completed job", env: testEnvelope(), handlerErr: nil},
		{name: "dropped job", env: dropReady, handlerErr: errors.New("rpc unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rec := settleWorker(nil)

			w.settle(context.Background(), "1-0", tt.env, tt.handlerErr)

			if len(rec.rescheduled) != 0 {
				t.Errorf("unexpected reschedule: %+v", rec.rescheduled)
			}
			if len(rec.acked) != 1 {
				t.Errorf("expected ack, got %v", rec.acked)
			}
		})
	}
}
