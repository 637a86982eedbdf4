package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"wasmexec/internal/exec/metrics"
	"wasmexec/internal/exec/sandbox"
	"wasmexec/internal/exec/sandbox/engine"
	"wasmexec/internal/exec/sandbox/result"
	"wasmexec/internal/exec/sandbox/spec"
	"wasmexec/internal/exec/sandbox/wasmtest"
	"wasmexec/internal/exec/service"
	appErr "wasmexec/pkg/errors"
)

type blockingRunner struct {
	release chan struct{}
	started chan struct{}
}

func (r *blockingRunner) Execute(ctx context.Context, req sandbox.Request) result.Outcome {
	select {
	case r.started <- struct{}{}:
	default:
	}
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return result.Completed("start", nil, result.Stream{}, result.Stream{})
}

func (r *blockingRunner) Profile() string { return "module" }

func TestNewServiceRequiresRunner(t *testing.T) {
	if _, err := service.NewService(nil, service.Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSaturatedPoolRejects(t *testing.T) {
	runner := &blockingRunner{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	svc, err := service.NewService(runner, service.Config{
		PoolSize: 1,
		SlotWait: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Execute(context.Background(), sandbox.Request{})
	}()
	<-runner.started

	_, err = svc.Execute(context.Background(), sandbox.Request{})
	if err == nil {
		t.Fatal("expected rejection while the only slot is busy")
	}
	if !appErr.Is(err, appErr.QueueFull) {
		t.Fatalf("expected QueueFull, got %v", err)
	}

	close(runner.release)
	<-done

	if _, err := svc.Execute(context.Background(), sandbox.Request{}); err != nil {
		t.Fatalf("slot must be reusable after release: %v", err)
	}
}

func TestExecuteHonorsCallerCancel(t *testing.T) {
	runner := &blockingRunner{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	svc, err := service.NewService(runner, service.Config{PoolSize: 1, SlotWait: time.Minute})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	go func() {
		_, _ = svc.Execute(context.Background(), sandbox.Request{})
	}()
	<-runner.started

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := svc.Execute(ctx, sandbox.Request{}); err != context.Canceled {
		t.Fatalf("expected context.Canceled while waiting for a slot, got %v", err)
	}
	close(runner.release)
}

func TestConcurrentExecutionsStayIsolated(t *testing.T) {
	eng, err := engine.NewEngine(engine.Config{Limits: spec.DefaultLimits()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	worker := sandbox.NewWorker(eng, metrics.Recorder{})
	svc, err := service.NewService(worker, service.Config{PoolSize: 4})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	const n = 4
	var wg sync.WaitGroup
	outcomes := make([]result.Outcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := wasmtest.StartPrint(fmt.Sprintf("guest-%d\n", i))
			outcomes[i], errs[i] = svc.Execute(context.Background(), sandbox.Request{Payload: payload})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("execution %d: %v", i, errs[i])
		}
		if outcomes[i].Status != result.StatusCompleted {
			t.Fatalf("execution %d: expected Completed, got %+v", i, outcomes[i])
		}
		want := fmt.Sprintf("guest-%d\n", i)
		if got := string(outcomes[i].Stdout.Bytes); got != want {
			t.Fatalf("execution %d: output crossed streams, got %q want %q", i, got, want)
		}
	}
}
