// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dgallion1/cookgest/internal/recipe"
)

var (
	// Conversion metrics
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookgest_documents_total",
			Help: "Documents converted, by outcome",
		},
		[]string{"result"},
	)

	conversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cookgest_conversion_duration_seconds",
			Help:    "Time to parse, analyze and export one document",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cookgest_job_queue_depth",
			Help: "Conversion jobs waiting for a worker",
		},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookgest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cookgest_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	rateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cookgest_rate_limit_rejects_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
	)
)

// Result labels a conversion outcome: "ok", or the lower-cased error code.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if code := recipe.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

// ObserveConversion records one finished document.
func ObserveConversion(err error, d time.Duration) {
	documentsTotal.WithLabelValues(Result(err)).Inc()
	conversionDuration.Observe(d.Seconds())
}

// SetQueueDepth reports the number of queued jobs.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RateLimited counts a request rejected by the limiter.
func RateLimited() {
	rateLimitRejects.Inc()
}
