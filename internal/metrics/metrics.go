// Package metrics exposes Prometheus collectors for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Purge reasons.
const (
	PurgeOwner   = "owner"
	PurgeAdmin   = "admin"
	PurgeExpired = "expired"
)

var (
	// HTTPRequestsTotal counts requests by route pattern.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipstash_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snipstash_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// SnippetOperations counts service operations by outcome.
	SnippetOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipstash_snippet_operations_total",
			Help: "Snippet operations by name and result",
		},
		[]string{"operation", "result"},
	)

	// SnippetsPurged counts permanent removals.
	SnippetsPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipstash_snippets_purged_total",
			Help: "Snippets permanently removed, by reason",
		},
		[]string{"reason"},
	)

	// MetadataCacheLookups counts metadata cache hits and misses.
	MetadataCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipstash_metadata_cache_lookups_total",
			Help: "Metadata cache lookups by result",
		},
		[]string{"result"},
	)

	// SSEClients tracks open event streams.
	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snipstash_sse_clients",
			Help: "Connected event stream clients",
		},
	)

	// SSEEventsDropped counts events not delivered to a slow or closed client.
	SSEEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snipstash_sse_events_dropped_total",
			Help: "Events dropped before reaching a client",
		},
	)

	// ListPageSize observes how many records list queries return.
	ListPageSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snipstash_list_page_size",
			Help:    "Records returned per list page",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency. It labels by chi route
// pattern rather than raw path so IDs do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
