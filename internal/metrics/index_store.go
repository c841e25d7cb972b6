// Package metrics exposes application metrics collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coinindex"

var (
	indexStoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "index_store",
		Name:      "operations_total",
		Help:      "Count of index store operations.",
	}, []string{"operation", "backend", "status"})
	indexStoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "index_store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of index store operations.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"operation", "backend", "status"})
)

// IndexStore tracks metrics for spending index storage operations.
type IndexStore struct {
	backend string
}

// NewIndexStore creates an IndexStore metrics collector for the named backend.
func NewIndexStore(backend string) *IndexStore {
	if backend == "" {
		backend = "unknown"
	}
	return &IndexStore{backend: backend}
}

// Observe records duration and status of a storage operation.
func (m IndexStore) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	indexStoreOperationsTotal.WithLabelValues(operation, m.backend, status).Inc()
	indexStoreOperationDuration.WithLabelValues(operation, m.backend, status).Observe(time.Since(started).Seconds())
}
