package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Session metrics
	SessionReady prometheus.Gauge

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Change notification metrics
	ChangesPublished *prometheus.CounterVec
	ChangesReceived  prometheus.Counter
	RosterReloads    prometheus.Counter

	// Query console metrics
	QueryExecutions *prometheus.CounterVec
	QueryLatency    prometheus.Histogram
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg registers nothing, which keeps tests free of global state.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionReady: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_ready",
			Help:      "1 when the database session is initialized, 0 otherwise",
		}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		ChangesPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_published_total",
			Help:      "Change signals published after a mutation",
		}, []string{"status"}),
		ChangesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_received_total",
			Help:      "Change signals delivered to subscribers from other contexts",
		}),
		RosterReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_reloads_total",
			Help:      "Full reloads of the cached patient list",
		}),

		QueryExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_console_executions_total",
			Help:      "Raw SQL statements executed from the query console",
		}, []string{"status"}),
		QueryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_console_duration_seconds",
			Help:      "Execution time of query console statements",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
}

// New creates metrics that are not registered anywhere.
func New(namespace string) *Metrics {
	return NewMetrics(namespace, nil)
}

// ObserveDB records the outcome of a database operation.
func (m *Metrics) ObserveDB(operation string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatabaseOperations.WithLabelValues(operation, status).Inc()
	m.DatabaseLatency.WithLabelValues(operation).Observe(seconds)
}
