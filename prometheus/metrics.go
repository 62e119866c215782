package prometheus

import (
	"time"

	"purchase-order-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Domain operation counters
	VendorOperationsCounter        prometheus.CounterVec
	PurchaseOrderOperationsCounter prometheus.CounterVec
	FulfillmentOperationsCounter   prometheus.CounterVec

	// Split outcome counter, labelled with the result (completed,
	// over_allocation, not_found, error)
	SplitResultsCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Domain operation counters
	VendorOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_vendor_operations_total",
			Help: "Total number of vendor operations",
		},
		[]string{"operation"},
	)

	PurchaseOrderOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_purchase_order_operations_total",
			Help: "Total number of purchase order operations",
		},
		[]string{"operation"},
	)

	FulfillmentOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_fulfillment_operations_total",
			Help: "Total number of fulfillment operations",
		},
		[]string{"operation"},
	)

	SplitResultsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_split_results_total",
			Help: "Total number of purchase order split requests by outcome",
		},
		[]string{"result"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordVendorOperation increments the counter for vendor operations
func RecordVendorOperation(operation string) {
	VendorOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordPurchaseOrderOperation increments the counter for purchase order operations
func RecordPurchaseOrderOperation(operation string) {
	PurchaseOrderOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordFulfillmentOperation increments the counter for fulfillment operations
func RecordFulfillmentOperation(operation string) {
	FulfillmentOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordSplitResult increments the split outcome counter
func RecordSplitResult(result string) {
	SplitResultsCounter.WithLabelValues(result).Inc()
}
