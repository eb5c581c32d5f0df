// Package telemetry exposes Prometheus collectors for the reader service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	extractionsTotal          *prometheus.CounterVec
	extractionDurationSeconds *prometheus.HistogramVec
	cacheOpsTotal             *prometheus.CounterVec
	fetchBytesTotal           *prometheus.CounterVec
	rateLimitedTotal          prometheus.Counter
	managedDegradedTotal      *prometheus.CounterVec
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDuration       *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call this
// function multiple times.
func Init() {
	once.Do(func() {
		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reader_extractions_total",
				Help: "Total extraction attempts, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)
		extractionDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reader_extraction_duration_seconds",
				Help:    "Histogram of extraction latencies per source.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		)
		cacheOpsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reader_cache_ops_total",
				Help: "Cache operations, labeled by op and result.",
			},
			[]string{"op", "result"},
		)
		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reader_fetch_bytes_total",
				Help: "Total bytes fetched from upstream, labeled by source.",
			},
			[]string{"source"},
		)
		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "reader_rate_limited_total",
				Help: "Requests rejected by the abuse rate limiter.",
			},
		)
		managedDegradedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reader_managed_degraded_total",
				Help: "Managed extractions that skipped the API for lack of credentials.",
			},
			[]string{"source"},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountExtraction records one extraction attempt outcome.
func CountExtraction(source, outcome string) {
	if extractionsTotal != nil {
		extractionsTotal.WithLabelValues(source, outcome).Inc()
	}
}

// ObserveExtractionDuration records how long one extraction took.
func ObserveExtractionDuration(source string, d time.Duration) {
	if extractionDurationSeconds != nil {
		extractionDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
	}
}

// CountCache records one cache operation result.
func CountCache(op, result string) {
	if cacheOpsTotal != nil {
		cacheOpsTotal.WithLabelValues(op, result).Inc()
	}
}

// AddFetchBytes accumulates upstream bytes per source.
func AddFetchBytes(source string, n int) {
	if fetchBytesTotal != nil && n > 0 {
		fetchBytesTotal.WithLabelValues(source).Add(float64(n))
	}
}

// CountRateLimited records one limiter rejection.
func CountRateLimited() {
	if rateLimitedTotal != nil {
		rateLimitedTotal.Inc()
	}
}

// CountManagedDegraded records a managed extraction that went straight to the
// local fallback chain.
func CountManagedDegraded(source string) {
	if managedDegradedTotal != nil {
		managedDegradedTotal.WithLabelValues(source).Inc()
	}
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	}
	if httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}
