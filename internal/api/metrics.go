package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatched = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_http_requests_total",
			Help: "Total number of HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// Request/response routes only; event streams live as long as a sweep.
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frontier_http_request_duration_seconds",
			Help:    "Duration of non-streaming HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	sseStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "frontier_sse_streams_active",
		Help: "Open sweep event streams.",
	})

	sseStreamDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "frontier_sse_stream_duration_seconds",
		Help:    "Lifetime of sweep event streams in seconds.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, sseStreamsActive, sseStreamDuration)
}

// isStreamRoute reports whether a route pattern serves a long-lived stream.
func isStreamRoute(pattern string) bool {
	return strings.HasSuffix(pattern, "/events")
}

// metricsMiddleware counts every request by chi route pattern (bounded
// cardinality) and records latency for everything except event streams.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		if !isStreamRoute(route) {
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
	})
}

// streamMetrics tracks open event streams and how long they stay open.
func streamMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sseStreamsActive.Inc()
		defer func() {
			sseStreamDuration.Observe(time.Since(start).Seconds())
			sseStreamsActive.Dec()
		}()
		next.ServeHTTP(w, r)
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
