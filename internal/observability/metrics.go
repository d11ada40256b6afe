package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting telemetry metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Feedback submissions by event kind and outcome
//   - Retry queue depth and flush behavior
//   - Profile and calibration fetch outcomes
//   - Experiment variant assignments
type Metrics struct {
	// SubmissionCounter counts feedback submissions.
	// Labels: kind (match|completion|trade|outcome), status (success|failure|throttled)
	SubmissionCounter *prometheus.CounterVec

	// QueueDepth is a gauge tracking pending retry queue entries.
	QueueDepth prometheus.Gauge

	// FlushDuration measures queue flush pass latency in seconds.
	// Buckets: 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 10s, 30s
	FlushDuration prometheus.Histogram

	// FlushDelivered counts events delivered by the background flusher.
	FlushDelivered prometheus.Counter

	// FetchCounter counts read-only fetches against the analytics service.
	// Labels: endpoint (profile|calibration), status (success|failure|rate_limited)
	FetchCounter *prometheus.CounterVec

	// AssignmentCounter counts new experiment variant assignments.
	// Labels: experiment, variant
	AssignmentCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with reg.
// A nil registerer uses the default registry. Call once per process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_feedback_submissions_total",
				Help: "Total feedback submissions by event kind and outcome",
			},
			[]string{"kind", "status"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "insight_retry_queue_depth",
				Help: "Number of undelivered feedback events awaiting retry",
			},
		),
		FlushDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "insight_queue_flush_duration_seconds",
				Help:    "Duration of retry queue flush passes in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		FlushDelivered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "insight_queue_flush_delivered_total",
				Help: "Total events delivered by the background flusher",
			},
		),
		FetchCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_fetches_total",
				Help: "Total read-only fetches by endpoint and outcome",
			},
			[]string{"endpoint", "status"},
		),
		AssignmentCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_experiment_assignments_total",
				Help: "Total new experiment variant assignments",
			},
			[]string{"experiment", "variant"},
		),
	}
}
