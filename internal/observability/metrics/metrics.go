package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "meterpay_"

	resultSuccess = "success"
	resultError   = "error"
	resultInvalid = "invalid"
)

var (
	registerOnce sync.Once

	checkoutInitiateTotal *prometheus.CounterVec
	checkoutOutcomeTotal  *prometheus.CounterVec
	checkoutWaitLatency   *prometheus.HistogramVec
	checkoutLateSignals   prometheus.Counter

	reportAggregateTotal   *prometheus.CounterVec
	reportAggregateLatency *prometheus.HistogramVec
	reportExportTotal      *prometheus.CounterVec
	reportExportLatency    *prometheus.HistogramVec
	exportDeliveryTotal    *prometheus.CounterVec

	backendRequestTotal   *prometheus.CounterVec
	backendRequestLatency *prometheus.HistogramVec
)

// Init registers collectors. db may be nil when reports are not telemetry-backed.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		checkoutInitiateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "checkout_initiate_total",
				Help: "Total checkout initiations by result",
			},
			[]string{"result"},
		)
		checkoutOutcomeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "checkout_outcome_total",
				Help: "Total checkout sessions by terminal outcome",
			},
			[]string{"outcome"},
		)
		checkoutWaitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "checkout_wait_seconds",
				Help:    "Time between checkout handoff and its result",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
			},
			[]string{"outcome"},
		)
		checkoutLateSignals = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "checkout_late_signals_total",
				Help: "Checkout signals ignored because the session was already resolved",
			},
		)

		reportAggregateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_aggregate_total",
				Help: "Total report aggregations by granularity and result",
			},
			[]string{"granularity", "result"},
		)
		reportAggregateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_aggregate_latency_seconds",
				Help:    "Report aggregation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"granularity", "result"},
		)
		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		exportDeliveryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_delivery_total",
				Help: "Total export deliveries by result",
			},
			[]string{"result"},
		)

		backendRequestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "backend_requests_total",
				Help: "Total backend API requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)
		backendRequestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "backend_request_latency_seconds",
				Help:    "Backend API latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		)

		prometheus.MustRegister(
			checkoutInitiateTotal,
			checkoutOutcomeTotal,
			checkoutWaitLatency,
			checkoutLateSignals,
			reportAggregateTotal,
			reportAggregateLatency,
			reportExportTotal,
			reportExportLatency,
			exportDeliveryTotal,
			backendRequestTotal,
			backendRequestLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncCheckoutInitiate counts a checkout initiation.
func IncCheckoutInitiate(result string) {
	if result == "" {
		result = resultSuccess
	}
	if checkoutInitiateTotal != nil {
		checkoutInitiateTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCheckoutOutcome records a terminal outcome and how long the surface was open.
func ObserveCheckoutOutcome(outcome string, wait time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	if wait < 0 {
		wait = 0
	}
	if checkoutOutcomeTotal != nil {
		checkoutOutcomeTotal.WithLabelValues(outcome).Inc()
	}
	if checkoutWaitLatency != nil {
		checkoutWaitLatency.WithLabelValues(outcome).Observe(wait.Seconds())
	}
}

// IncCheckoutLateSignal counts a duplicate or late checkout signal.
func IncCheckoutLateSignal() {
	if checkoutLateSignals != nil {
		checkoutLateSignals.Inc()
	}
}

// ObserveReportAggregate records aggregation latency and result.
func ObserveReportAggregate(granularity, result string, duration time.Duration) {
	if granularity == "" {
		granularity = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportAggregateTotal != nil {
		reportAggregateTotal.WithLabelValues(granularity, result).Inc()
	}
	if reportAggregateLatency != nil {
		reportAggregateLatency.WithLabelValues(granularity, result).Observe(duration.Seconds())
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncExportDelivery counts a delivery attempt: shared, stored or error.
func IncExportDelivery(result string) {
	if result == "" {
		result = "unknown"
	}
	if exportDeliveryTotal != nil {
		exportDeliveryTotal.WithLabelValues(result).Inc()
	}
}

// ObserveBackendRequest records a backend API call.
func ObserveBackendRequest(endpoint, result string, duration time.Duration) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if backendRequestTotal != nil {
		backendRequestTotal.WithLabelValues(endpoint, result).Inc()
	}
	if backendRequestLatency != nil {
		backendRequestLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultInvalid = resultInvalid

	DeliveryShared = "shared"
	DeliveryStored = "stored"
	DeliveryError  = resultError
)
