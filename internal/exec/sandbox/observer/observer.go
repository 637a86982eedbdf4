// Package observer defines logging and metrics hooks for sandbox execution.
package observer

import "context"

// MetricsRecorder records sandbox metrics.
type MetricsRecorder interface {
	ObserveExecution(ctx context.Context, profileID string, outcome string, timeMs int64, outputBytes int64)
	ObserveTruncation(ctx context.Context, stream string)
}

// NoopMetricsRecorder is a default recorder that does nothing.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) ObserveExecution(ctx context.Context, profileID string, outcome string, timeMs int64, outputBytes int64) {
}

func (NoopMetricsRecorder) ObserveTruncation(ctx context.Context, stream string) {
}
