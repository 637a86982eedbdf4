// Package sandbox defines the public call interface used by the exec service.
package sandbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wasmexec/internal/exec/sandbox/engine"
	"wasmexec/internal/exec/sandbox/observer"
	"wasmexec/internal/exec/sandbox/result"
	"wasmexec/pkg/utils/logger"

	"go.uber.org/zap"
)

// Runner executes one wasm payload to completion and reports the outcome.
type Runner interface {
	Execute(ctx context.Context, req Request) result.Outcome
	Profile() string
}

// Request contains all data needed to execute one wasm payload.
type Request struct {
	// ExecutionID identifies the run in logs and metrics.
	// A fresh ID is generated when empty.
	ExecutionID string

	// Payload is the raw wasm binary.
	Payload []byte

	// Args and Env are forwarded to the guest. Neither grants any
	// host capability beyond the values themselves.
	Args []string
	Env  map[string]string
}

// Worker is the default Runner. It wraps the execution engine and
// reports timing and outcome to the configured observer.
type Worker struct {
	engine  *engine.Engine
	metrics observer.MetricsRecorder
}

// NewWorker builds a Worker around eng. A nil recorder falls back to
// the no-op recorder.
func NewWorker(eng *engine.Engine, rec observer.MetricsRecorder) *Worker {
	if rec == nil {
		rec = observer.NoopMetricsRecorder{}
	}
	return &Worker{engine: eng, metrics: rec}
}

// Profile reports the deployment profile of the underlying engine.
func (w *Worker) Profile() string {
	return w.engine.Profile()
}

// Execute runs one payload and records the result. It never returns an
// error; every failure mode is encoded in the outcome.
func (w *Worker) Execute(ctx context.Context, req Request) result.Outcome {
	if req.ExecutionID == "" {
		req.ExecutionID = uuid.NewString()
	}

	start := time.Now()
	out := w.engine.Execute(ctx, engine.Request{
		ExecutionID: req.ExecutionID,
		Payload:     req.Payload,
		Args:        req.Args,
		Env:         req.Env,
	})
	elapsed := time.Since(start)

	outputBytes := int64(len(out.Stdout.Bytes) + len(out.Stderr.Bytes))
	w.metrics.ObserveExecution(ctx, w.engine.Profile(), string(out.Status), elapsed.Milliseconds(), outputBytes)
	if out.Stdout.Truncated {
		w.metrics.ObserveTruncation(ctx, "stdout")
	}
	if out.Stderr.Truncated {
		w.metrics.ObserveTruncation(ctx, "stderr")
	}

	logger.Info(ctx, "execution finished",
		zap.String("execution_id", req.ExecutionID),
		zap.String("profile", w.engine.Profile()),
		zap.String("status", string(out.Status)),
		zap.String("stage", string(out.Stage)),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
		zap.Int64("output_bytes", outputBytes),
	)
	return out
}
