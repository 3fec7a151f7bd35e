package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planscan_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planscan_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	DocumentsUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planscan_documents_uploaded_total",
		Help: "Document records created.",
	})

	AnalysesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planscan_analyses_started_total",
		Help: "Analysis runs scheduled.",
	})

	AnalysesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planscan_analyses_finished_total",
		Help: "Analysis runs reaching a terminal state.",
	}, []string{"status"})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planscan_extraction_duration_seconds",
		Help:    "Wall time of the background extraction job.",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
	})
)

// MetricsMiddleware tracks request counts and latency
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(wrapped, r)

		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler serves the Prometheus scrape endpoint
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
