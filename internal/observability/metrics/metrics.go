package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bizledger_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bizledger_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	transactionsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bizledger_transactions_committed_total",
		Help: "Count of committed transactions by type",
	}, []string{"type"})

	transactionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bizledger_transactions_rejected_total",
		Help: "Count of rejected transaction requests by reason",
	}, []string{"reason"})

	transactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bizledger_transaction_commit_duration_seconds",
		Help:    "Duration of transaction creation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	stockAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bizledger_stock_adjustments_total",
		Help: "Count of inventory ledger adjustments by result",
	}, []string{"result"})

	compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bizledger_stock_compensations_total",
		Help: "Count of compensating stock reversals after commit failures",
	}, []string{"result"})

	feedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bizledger_inventory_feed_subscribers",
		Help: "Number of connected inventory feed websocket subscribers",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveTransactionCommitted records a committed transaction.
func ObserveTransactionCommitted(txType string, duration time.Duration) {
	transactionsCommitted.WithLabelValues(txType).Inc()
	transactionDuration.WithLabelValues("committed").Observe(duration.Seconds())
}

// ObserveTransactionRejected records a rejected transaction request.
func ObserveTransactionRejected(reason string, duration time.Duration) {
	transactionsRejected.WithLabelValues(reason).Inc()
	transactionDuration.WithLabelValues("rejected").Observe(duration.Seconds())
}

// ObserveStockAdjustment records a ledger adjustment outcome.
func ObserveStockAdjustment(result string) {
	stockAdjustments.WithLabelValues(result).Inc()
}

// ObserveCompensation records a compensating reversal attempt.
func ObserveCompensation(result string) {
	compensations.WithLabelValues(result).Inc()
}

// IncrementFeedSubscribers increments the websocket subscriber gauge.
func IncrementFeedSubscribers() {
	feedSubscribers.Inc()
}

// DecrementFeedSubscribers decrements the websocket subscriber gauge.
func DecrementFeedSubscribers() {
	feedSubscribers.Dec()
}
