package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	stopped  atomic.Bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *fakeService) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func TestRunnerStopsAllServicesWhenOneFails(t *testing.T) {
	failing := &fakeService{name: "http", startErr: errors.New("bind failed")}
	blocking := &fakeService{name: "worker", block: true}
	cleaned := false
	runner := NewRunner(failing, blocking).OnShutdown(func() error {
		cleaned = true
		return nil
	})

	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "bind failed" {
		t.Fatalf("expected start error, got %v", err)
	}
	if !failing.stopped.Load() || !blocking.stopped.Load() {
		t.Fatalf("all services must be stopped")
	}
	if !cleaned {
		t.Fatalf("cleanup should run after stop")
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{name: "worker", block: true}
	runner := NewRunner(svc)

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, time.Second, nil) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should be a clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop after cancel")
	}
	if !svc.stopped.Load() {
		t.Fatalf("service should be stopped")
	}
}

func TestNormalizeOptionsAndModes(t *testing.T) {
	opts := normalizeOptions(Options{})
	if opts.Mode != ModeAll || opts.ShutdownTimeout != 10*time.Second || opts.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if validMode("batch") {
		t.Fatalf("unknown mode should be rejected")
	}
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
	if err := (*Runner)(nil).Run(context.Background(), 0, nil); err == nil {
		t.Fatalf("nil runner should fail")
	}
}
