// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// queryTotal counts completed /api/chat requests, partitioned by
	// outcome: "ok" or "error".
	queryTotal *prometheus.CounterVec

	// queryDuration records the wall-clock duration of each /api/chat
	// request from receipt to the generated answer.
	queryDuration *prometheus.HistogramVec

	// ingestTotal counts completed /api/upload requests, partitioned by outcome.
	ingestTotal *prometheus.CounterVec

	// ingestChunks counts the chunks written by successful ingestions.
	ingestChunks prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docq",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of /api/chat requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docq",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/chat requests from receipt to answer.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),

		ingestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docq",
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total number of /api/upload requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		ingestChunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docq",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks embedded and stored by successful ingestions.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method and status code.",
		}, []string{"method", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docq",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// instrument is an http.Handler middleware recording per-request counters
// and latency into the server's registry.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
