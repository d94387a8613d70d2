// Package metrics exposes Prometheus counters for HTTP traffic and CSV imports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/userimport/internal/core"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	importRows      *prometheus.CounterVec
	importDuration  prometheus.Histogram
	exportRows      prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userimport_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userimport_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userimport_import_rows_total",
		Help: "Imported CSV rows by result (created, updated, failed).",
	}, []string{"result"})
	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "userimport_import_duration_seconds",
		Help:    "Duration of completed CSV imports.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	exportRows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "userimport_export_rows_total",
		Help: "Rows written to CSV exports.",
	})

	registry.MustRegister(requests, duration, importRows, importDuration, exportRows)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		importRows:      importRows,
		importDuration:  importDuration,
		exportRows:      exportRows,
	}
}

// Handler serves /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveImport records the row counters of a finished import.
func (m *Metrics) ObserveImport(o *core.ImportOutcome, elapsed time.Duration) {
	if m == nil || o == nil {
		return
	}
	m.importRows.WithLabelValues("created").Add(float64(o.Success))
	m.importRows.WithLabelValues("updated").Add(float64(o.Updated))
	m.importRows.WithLabelValues("failed").Add(float64(o.Failed))
	m.importDuration.Observe(elapsed.Seconds())
}

// ObserveExport records the number of rows written by an export.
func (m *Metrics) ObserveExport(rows int) {
	if m == nil {
		return
	}
	m.exportRows.Add(float64(rows))
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
