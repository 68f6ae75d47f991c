package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the web frontend
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Workflow metrics
	generationOutcomes *prometheus.CounterVec
	generationAttempts prometheus.Histogram
	generationDuration prometheus.Histogram
	editorOperations   *prometheus.CounterVec
	submissions        *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		generationOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_generation_outcomes_total",
				Help: "Generation invocations by terminal state",
			},
			[]string{"state"},
		),
		generationAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_generation_attempts",
				Help:    "Text-generation calls made per invocation",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
		),
		generationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_generation_duration_seconds",
				Help:    "Wall time of a generation invocation",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 9),
			},
		),
		editorOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_editor_operations_total",
				Help: "Draft editor operations by result",
			},
			[]string{"operation", "result"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_submissions_total",
				Help: "Final recipe submissions by result",
			},
			[]string{"result"},
		),
	}
}

// RecordGeneration records the terminal state of one invocation
func (m *Metrics) RecordGeneration(state string, attempts int, duration time.Duration) {
	m.generationOutcomes.WithLabelValues(state).Inc()
	if attempts > 0 {
		m.generationAttempts.Observe(float64(attempts))
	}
	m.generationDuration.Observe(duration.Seconds())
}

// RecordEditorOperation records one editor mutation
func (m *Metrics) RecordEditorOperation(operation, result string) {
	m.editorOperations.WithLabelValues(operation, result).Inc()
}

// RecordSubmission records a final submission result
func (m *Metrics) RecordSubmission(result string) {
	m.submissions.WithLabelValues(result).Inc()
}

// Registry exposes the registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
