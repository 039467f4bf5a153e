package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeService records lifecycle calls and lets tests control Run's result.
type fakeService struct {
	runs     int
	cleanups int
	runErr   error
	onClean  func()
}

func (f *fakeService) Run(ctx context.Context) (func(context.Context) error, error) {
	f.runs++
	if f.runErr != nil {
		return nil, f.runErr
	}
	return func(context.Context) error {
		f.cleanups++
		if f.onClean != nil {
			f.onClean()
		}
		return nil
	}, nil
}

func TestRunnerStartStop(t *testing.T) {
	svc := &fakeService{}
	runner := NewRunner(svc)

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if svc.runs != 1 {
		t.Errorf("expected 1 run, got %d", svc.runs)
	}

	if err := runner.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if svc.cleanups != 1 {
		t.Errorf("expected 1 cleanup, got %d", svc.cleanups)
	}
}

func TestRunnerDoubleStart(t *testing.T) {
	runner := NewRunner(&fakeService{})

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := runner.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestRunnerStartAfterStop(t *testing.T) {
	runner := NewRunner(&fakeService{})

	if err := runner.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := runner.Start(context.Background()); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("Start after Stop = %v, want ErrAlreadyStopped", err)
	}
}

func TestRunnerStopIdempotent(t *testing.T) {
	svc := &fakeService{}
	runner := NewRunner(svc)

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := runner.Stop(context.Background()); err != nil {
			t.Fatalf("Stop #%d failed: %v", i+1, err)
		}
	}
	if svc.cleanups != 1 {
		t.Errorf("expected 1 cleanup after repeated Stop, got %d", svc.cleanups)
	}
}

func TestRunnerStartFailureMarksStopped(t *testing.T) {
	runErr := errors.New("boom")
	runner := NewRunner(&fakeService{runErr: runErr})

	if err := runner.Start(context.Background()); !errors.Is(err, runErr) {
		t.Fatalf("Start = %v, want %v", err, runErr)
	}
	if err := runner.Start(context.Background()); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("Start after failed Start = %v, want ErrAlreadyStopped", err)
	}
	if err := runner.Stop(context.Background()); err != nil {
		t.Errorf("Stop after failed Start = %v, want nil", err)
	}
}

func TestRunnerDetachesFromStartContext(t *testing.T) {
	svc := &fakeService{}
	runner := NewRunner(svc)

	ctx, cancel := context.WithCancel(context.Background())
	if err := runner.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Cancelling the setup context must not tear the service down.
	cancel()
	time.Sleep(10 * time.Millisecond)
	if svc.cleanups != 0 {
		t.Errorf("cleanup ran after setup context cancel, want only on Stop")
	}

	if err := runner.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if svc.cleanups != 1 {
		t.Errorf("expected 1 cleanup, got %d", svc.cleanups)
	}
}

func TestGroupCleanupOrder(t *testing.T) {
	var order []string
	first := &fakeService{onClean: func() { order = append(order, "first") }}
	second := &fakeService{onClean: func() { order = append(order, "second") }}

	group := Group{first, second}
	cleanup, err := group.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("cleanup order = %v, want [second first]", order)
	}
}

func TestGroupStartFailureUnwinds(t *testing.T) {
	started := &fakeService{}
	failing := &fakeService{runErr: errors.New("boom")}

	group := Group{started, failing}
	if _, err := group.Run(context.Background()); err == nil {
		t.Fatal("expected Run to fail")
	}
	if started.cleanups != 1 {
		t.Errorf("expected already-started service to be cleaned up, got %d cleanups", started.cleanups)
	}
}
