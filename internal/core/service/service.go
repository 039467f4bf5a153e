// Package service provides the start/stop contract shared by every
// long-running pipeline process.
package service

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("service has already been started")

	// ErrAlreadyStopped is returned when Start is called after Stop.
	ErrAlreadyStopped = errors.New("service has already been stopped")
)

// Service is a single long-running capability. Run performs setup, begins
// background work scoped to ctx, and returns a cleanup closure that must
// release every resource Run acquired (worker loops, queue connections).
// The cleanup closure must wait for in-flight work to drain before
// returning.
type Service interface {
	Run(ctx context.Context) (cleanup func(context.Context) error, err error)
}

// Runner drives a Service through a uniform lifecycle: Start at most once,
// Stop idempotently, and shutdown that always waits for the cleanup
// closure to finish before returning.
type Runner struct {
	svc Service

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	cleanup func(context.Context) error
}

// NewRunner wraps svc in a lifecycle runner.
func NewRunner(svc Service) *Runner {
	return &Runner{svc: svc}
}

// Start runs the service. It returns an error if the runner was already
// started or already stopped.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrAlreadyStopped
	}
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	// Detached from the caller's ctx on purpose: Stop is the only
	// cancellation path, so an expiring setup context cannot sever
	// in-flight jobs.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cleanup, err := r.svc.Run(runCtx)
	if err != nil {
		cancel()
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.cancel = cancel
	r.cleanup = cleanup
	r.mu.Unlock()
	return nil
}

// Stop cancels the service and waits for its cleanup closure to complete.
// Calling Stop more than once, or before Start, is a no-op.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	cancel := r.cancel
	cleanup := r.cleanup
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cleanup != nil {
		return cleanup(ctx)
	}
	return nil
}
