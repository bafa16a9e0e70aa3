// Package metrics holds the Prometheus collectors for the consistency engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CounterCacheRequests counts counter reads and adjustments by outcome
	// (hit, miss, error, adjust, reseed).
	CounterCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_counter_cache_requests_total",
			Help: "Counter cache operations by result",
		},
		[]string{"result"},
	)
	// MirrorWrites counts graph mirror writes by op and outcome (ok, retried, failed, queued).
	MirrorWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_mirror_writes_total",
			Help: "Graph mirror writes by op and outcome",
		},
		[]string{"op", "outcome"},
	)
	MirrorWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_mirror_write_duration_seconds",
			Help:    "Duration of graph mirror writes including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	// Transitions counts committed relationship and reaction transitions.
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_transitions_total",
			Help: "Committed transitions by action and result",
		},
		[]string{"action", "result"},
	)
	NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_notifications_dropped_total",
			Help: "Notifications a sink failed to deliver",
		},
		[]string{"sink"},
	)
)

// InitPrometheus registers the metrics. Call this once from main.
func InitPrometheus() {
	prometheus.MustRegister(CounterCacheRequests)
	prometheus.MustRegister(MirrorWrites)
	prometheus.MustRegister(MirrorWriteDuration)
	prometheus.MustRegister(Transitions)
	prometheus.MustRegister(NotificationsDropped)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveMirror records a finished mirror write.
func ObserveMirror(op, outcome string, started time.Time) {
	MirrorWrites.WithLabelValues(op, outcome).Inc()
	MirrorWriteDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Transition records the result of a transition attempt. result is "ok" or an error kind.
func Transition(action, result string) {
	Transitions.WithLabelValues(action, result).Inc()
}
