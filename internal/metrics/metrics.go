package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pulsedoc"

// Metrics owns a private registry so tests can build as many as they like.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	documentsTotal   *prometheus.CounterVec
	chunksTotal      *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	orderOutcomes    *prometheus.CounterVec
	retrievedChunks  prometheus.Histogram
	providerDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		documentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Uploaded documents by final status.",
		}, []string{"status"}),
		chunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Stored chunks by whether an embedding was attached.",
		}, []string{"embedded"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		orderOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "outcomes_total",
			Help:      "Order requests by outcome status.",
		}, []string{"status"}),
		retrievedChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "chunks",
			Help:      "Chunks returned per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 20},
		}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Model provider call duration by operation and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.documentsTotal,
		m.chunksTotal,
		m.cacheLookups,
		m.orderOutcomes,
		m.retrievedChunks,
		m.providerDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the chi route
// pattern so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) RecordDocument(status string) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordChunks(embedded, unembedded int) {
	if m == nil {
		return
	}
	if embedded > 0 {
		m.chunksTotal.WithLabelValues("true").Add(float64(embedded))
	}
	if unembedded > 0 {
		m.chunksTotal.WithLabelValues("false").Add(float64(unembedded))
	}
}

func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

func (m *Metrics) RecordOrderOutcome(status string) {
	if m == nil {
		return
	}
	m.orderOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRetrieval(chunks int) {
	if m == nil {
		return
	}
	m.retrievedChunks.Observe(float64(chunks))
}

func (m *Metrics) ObserveProviderCall(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.providerDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}
