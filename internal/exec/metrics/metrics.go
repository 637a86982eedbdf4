package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasmexec_executions_total",
			Help: "Total number of wasm executions",
		},
		[]string{"profile", "outcome"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wasmexec_execution_duration_ms",
			Help:    "Execution duration in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"profile"},
	)

	OutputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wasmexec_output_bytes",
			Help:    "Captured stdout plus stderr bytes per execution",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		},
	)

	TruncationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasmexec_output_truncations_total",
			Help: "Executions whose captured output hit the capture limit",
		},
		[]string{"stream"},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wasmexec_active_workers",
			Help: "Number of workers currently executing payloads",
		},
	)

	QueueRejectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wasmexec_queue_rejects_total",
			Help: "Requests rejected because all worker slots were busy",
		},
	)
)

// Recorder adapts the package counters to the sandbox observer interface.
type Recorder struct{}

func (Recorder) ObserveExecution(_ context.Context, profileID string, outcome string, timeMs int64, outputBytes int64) {
	ExecutionsTotal.WithLabelValues(profileID, outcome).Inc()
	ExecutionDuration.WithLabelValues(profileID).Observe(float64(timeMs))
	OutputBytes.Observe(float64(outputBytes))
}

func (Recorder) ObserveTruncation(_ context.Context, stream string) {
	TruncationsTotal.WithLabelValues(stream).Inc()
}
