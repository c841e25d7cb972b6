package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "requests_total",
		Help:      "Count of transaction view queries.",
	}, []string{"status"})
	queryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "query",
		Name:      "request_duration_seconds",
		Help:      "Duration of transaction view queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
)

// Query tracks metrics for transaction view queries.
type Query struct{}

func NewQuery() *Query {
	return &Query{}
}

// Observe records a query outcome. Status is one of ok, not_found, not_yet_indexed, error.
func (m Query) Observe(status string, started time.Time) {
	if status == "" {
		status = "unknown"
	}
	queryRequestsTotal.WithLabelValues(status).Inc()
	queryRequestDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}
