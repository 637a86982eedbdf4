// Package service coordinates wasm execution through a bounded worker pool.
package service

import (
	"context"
	"time"

	appErr "wasmexec/pkg/errors"

	"wasmexec/internal/exec/metrics"
	"wasmexec/internal/exec/sandbox"
	"wasmexec/internal/exec/sandbox/result"
)

const (
	defaultPoolSize     = 4
	defaultExecTimeout  = 30 * time.Second
	defaultSlotWaitTime = 2 * time.Second
)

// Config holds service level tuning knobs.
type Config struct {
	// PoolSize bounds the number of concurrently executing payloads.
	PoolSize int
	// ExecTimeout caps the wall time of a single execution.
	ExecTimeout time.Duration
	// SlotWait bounds how long a request may wait for a free worker
	// slot before being rejected.
	SlotWait time.Duration
}

// Service owns the worker pool and dispatches executions to the runner.
type Service struct {
	runner      sandbox.Runner
	execTimeout time.Duration
	slotWait    time.Duration
	sem         chan struct{}
}

// NewService builds a Service around runner.
func NewService(runner sandbox.Runner, cfg Config) (*Service, error) {
	if runner == nil {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("runner is nil")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	execTimeout := cfg.ExecTimeout
	if execTimeout <= 0 {
		execTimeout = defaultExecTimeout
	}
	slotWait := cfg.SlotWait
	if slotWait <= 0 {
		slotWait = defaultSlotWaitTime
	}
	return &Service{
		runner:      runner,
		execTimeout: execTimeout,
		slotWait:    slotWait,
		sem:         make(chan struct{}, poolSize),
	}, nil
}

// Execute runs one payload under a worker slot and the configured
// timeout. The returned error is non-nil only when the request never
// reached the sandbox, such as when the pool is saturated.
func (s *Service) Execute(ctx context.Context, req sandbox.Request) (result.Outcome, error) {
	if err := s.acquireSlot(ctx); err != nil {
		return result.Outcome{}, err
	}
	defer s.releaseSlot()

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	execCtx, cancel := context.WithTimeout(ctx, s.execTimeout)
	defer cancel()

	return s.runner.Execute(execCtx, req), nil
}

// Profile reports the deployment profile of the underlying runner.
func (s *Service) Profile() string {
	return s.runner.Profile()
}

func (s *Service) acquireSlot(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	default:
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.slotWait):
		metrics.QueueRejectsTotal.Inc()
		return appErr.New(appErr.QueueFull).WithMessage("worker pool is full")
	}
}

func (s *Service) releaseSlot() {
	select {
	case <-s.sem:
	default:
	}
}
