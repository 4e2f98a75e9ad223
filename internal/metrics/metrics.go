// Package metrics defines and registers the Prometheus metrics exposed on /metrics.
// All metrics are registered with the default registry at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fiteval"

// Outcome label values for EvaluationsTotal
const (
	OutcomeSuccess      = "success"
	OutcomeNonZeroExit  = "nonzero_exit"
	OutcomeSpawnFailure = "spawn_failure"
	OutcomeTimeout      = "timeout"
	OutcomeCanceled     = "canceled"
)

// EvaluationsTotal counts finished evaluator invocations.
// Labels:
//   - test_type: the lower-cased test type sent by the client
//   - outcome: one of the Outcome* constants
var EvaluationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Total number of evaluator invocations, by test type and outcome.",
	},
	[]string{"test_type", "outcome"},
)

// EvaluationDuration measures evaluator wall time.
// Label:
//   - outcome: one of the Outcome* constants
var EvaluationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Wall time of evaluator processes.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 900},
	},
	[]string{"outcome"},
)

// EvaluationsInFlight is the number of evaluator processes currently running
var EvaluationsInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "evaluations_in_flight",
		Help:      "Number of evaluator processes currently running.",
	},
)

// UploadsRejectedTotal counts uploads refused before evaluation.
// Label:
//   - reason: "missing_input", "unsupported_media_type", "duplicate_file", "too_large", "malformed"
var UploadsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_rejected_total",
		Help:      "Total number of rejected uploads, by reason.",
	},
	[]string{"reason"},
)

// UploadBytes observes accepted upload sizes
var UploadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_bytes",
		Help:      "Size of accepted video uploads in bytes.",
		Buckets:   prometheus.ExponentialBuckets(1<<16, 4, 8), // 64KiB .. 1GiB
	},
)

// CleanupFailuresTotal counts uploaded assets that could not be removed
var CleanupFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_failures_total",
		Help:      "Total number of uploaded assets that could not be deleted after evaluation.",
	},
)

// AuthAttemptsTotal counts signup and login attempts.
// Labels:
//   - action: "signup" or "login"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of signup and login attempts, by result.",
	},
	[]string{"action", "result"},
)

// HTTPRequestsTotal counts handled HTTP requests.
// Labels:
//   - route: the matched route template, or "unmatched"
//   - method, status
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by route, method and status code.",
	},
	[]string{"route", "method", "status"},
)

// HTTPRequestDuration measures request latency
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route"},
)
