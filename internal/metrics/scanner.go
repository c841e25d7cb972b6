package metrics

import (
	"time"

	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scannerBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "blocks_total",
		Help:      "Count of scanned blocks.",
	}, []string{"network", "status"})

	scannerTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "transactions_total",
		Help:      "Count of indexed transactions.",
	}, []string{"network"})

	scannerBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "block_duration_seconds",
		Help:      "Duration of indexing a single block.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms..4s
	}, []string{"network", "status"})

	scannerHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "height",
		Help:      "Height of the last fully indexed block.",
	}, []string{"network"})

	scannerCheckpoint = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "checkpoint",
		Help:      "Last stored checkpoint, the next height to scan.",
	}, []string{"network"})

	scannerTxRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "transactions_per_second",
		Help:      "Transaction throughput over the last progress window.",
	}, []string{"network"})

	scannerBlockRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "blocks_per_second",
		Help:      "Block throughput over the last progress window.",
	}, []string{"network"})
)

// Scanner tracks metrics for the chain scanner.
type Scanner struct {
	network model.Network
}

// NewScanner constructs a Scanner collector with sane defaults.
func NewScanner(network model.Network) *Scanner {
	if network == "" {
		network = "unknown"
	}
	return &Scanner{network: network}
}

// ObserveBlock records indexing of a single block and its transaction count.
func (m Scanner) ObserveBlock(err error, height uint64, txs int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	scannerBlocksTotal.WithLabelValues(string(m.network), status).Inc()
	scannerBlockDuration.WithLabelValues(string(m.network), status).Observe(time.Since(started).Seconds())
	if err != nil {
		return
	}
	scannerTransactionsTotal.WithLabelValues(string(m.network)).Add(float64(txs))
	scannerHeight.WithLabelValues(string(m.network)).Set(float64(height))
}

// ObserveCheckpoint records a stored checkpoint.
func (m Scanner) ObserveCheckpoint(height uint32) {
	scannerCheckpoint.WithLabelValues(string(m.network)).Set(float64(height))
}

// ObserveThroughput publishes the throughput of the last progress window.
func (m Scanner) ObserveThroughput(txPerSecond, blocksPerSecond float64) {
	scannerTxRate.WithLabelValues(string(m.network)).Set(txPerSecond)
	scannerBlockRate.WithLabelValues(string(m.network)).Set(blocksPerSecond)
}
