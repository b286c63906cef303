package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Jito RPC Metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec
	rpcErrorsTotal  *prometheus.CounterVec

	// Submission Metrics
	submissionsTotal        *prometheus.CounterVec
	submittedLamportsTotal  prometheus.Counter
	submissionStepDurations *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jito_rpc_calls_total",
				Help: "Total number of Jito JSON-RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jito_rpc_call_duration_seconds",
				Help:    "Duration of Jito JSON-RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		rpcErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jito_rpc_errors_total",
				Help: "Total number of JSON-RPC error responses by method and error code",
			},
			[]string{"method", "code"},
		),

		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jito_submissions_total",
				Help: "Total number of transfer submissions by outcome",
			},
			[]string{"status"},
		),
		submittedLamportsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "jito_submitted_lamports_total",
				Help: "Total lamports moved by accepted transfer submissions",
			},
		),
		submissionStepDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jito_submission_step_duration_seconds",
				Help:    "Duration of each submission step in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"step"},
		),
	}
}

// RPC metric helpers

// RecordRPCCall records a JSON-RPC call with its duration and status.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(duration)
}

// RecordRPCError records a JSON-RPC error response.
func (m *Metrics) RecordRPCError(method string, code int) {
	m.rpcErrorsTotal.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
}

// Submission metric helpers

// RecordSubmission records the outcome of a submission run.
// Lamports are only counted for accepted submissions.
func (m *Metrics) RecordSubmission(status string, lamports uint64) {
	m.submissionsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.submittedLamportsTotal.Add(float64(lamports))
	}
}

// RecordStep records how long one submission step took.
func (m *Metrics) RecordStep(step string, duration float64) {
	m.submissionStepDurations.WithLabelValues(step).Observe(duration)
}

// WriteTextfile writes everything gathered from g to path in the Prometheus
// text exposition format, for pickup by a node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
