// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	// Payment lifecycle
	PaymentsCreated   *prometheus.CounterVec
	PaymentsConfirmed *prometheus.CounterVec
	PaymentsTimedOut  *prometheus.CounterVec

	// Polling
	PollsTotal  *prometheus.CounterVec
	PollLatency *prometheus.HistogramVec

	// Explorer
	ExplorerErrors  *prometheus.CounterVec
	ExplorerLatency *prometheus.HistogramVec

	// Sweeper
	IntentsEvicted prometheus.Counter
	SweepsTotal    prometheus.Counter
}

// Poll result label values.
const (
	PollResultConfirmed = "confirmed"
	PollResultPending   = "pending"
	PollResultTimeout   = "timeout"
	PollResultTransient = "transient_error"
)

// NewMetrics creates a new Metrics instance with all metrics registered on
// the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crypto_pos"
	}

	return &Metrics{
		PaymentsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "payments_created_total",
			Help:      "Total number of payment intents created",
		}, []string{"method"}),
		PaymentsConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "payments_confirmed_total",
			Help:      "Total number of payments confirmed on chain",
		}, []string{"method"}),
		PaymentsTimedOut: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "payments_timed_out_total",
			Help:      "Total number of payments that reached the attempt ceiling",
		}, []string{"method"}),
		PollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "polls_total",
			Help:      "Poll outcomes by result",
		}, []string{"result"}),
		PollLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "poll_duration_seconds",
			Help:      "End-to-end poll latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"family"}),
		ExplorerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "explorer",
			Name:      "errors_total",
			Help:      "Transient explorer failures by chain family",
		}, []string{"family"}),
		ExplorerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "explorer",
			Name:      "request_duration_seconds",
			Help:      "Explorer query latency by chain family",
			Buckets:   prometheus.DefBuckets,
		}, []string{"family"}),
		IntentsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "intents_evicted_total",
			Help:      "Intents evicted from the fast-path cache",
		}),
		SweepsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "sweeps_total",
			Help:      "Completed sweep passes",
		}),
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
