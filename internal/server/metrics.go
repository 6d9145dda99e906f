package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the prometheus collectors the API exports.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	SnapshotsDeleted   prometheus.Counter
	SnapshotsCreated   prometheus.Counter
	StoreErrors        prometheus.Counter
}

// NewMetrics registers the API collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapwatch_requests_total",
			Help: "Total number of snapshot API requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapwatch_request_duration_seconds",
			Help:    "Snapshot API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		SnapshotsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapwatch_snapshots_deleted_total",
			Help: "Total number of snapshots deleted through the API.",
		}),
		SnapshotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapwatch_snapshots_created_total",
			Help: "Total number of snapshots created through the API.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapwatch_store_errors_total",
			Help: "Total number of snapshot store failures.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.SnapshotsDeleted,
		m.SnapshotsCreated,
		m.StoreErrors,
	)
	return m
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := "other"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(wrapped.statusCode)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
