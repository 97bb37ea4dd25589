package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/supervisor"
)

// Metrics holds the emulator's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	linesWritten   *prometheus.CounterVec
	linesDropped   *prometheus.CounterVec
	linesServed    *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	followers      prometheus.Gauge
	running        *prometheus.GaugeVec
}

// NewMetrics creates collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "podlogs",
			Name:      "log_lines_written_total",
			Help:      "Lines captured from emulated containers.",
		}, []string{"container", "stream"}),
		linesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "podlogs",
			Name:      "log_lines_dropped_total",
			Help:      "Lines a slow follower missed.",
		}, []string{"container"}),
		linesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "podlogs",
			Name:      "log_lines_served_total",
			Help:      "Lines written to log clients.",
		}, []string{"follow"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "podlogs",
			Name:      "http_requests_total",
			Help:      "Engine API requests by route and status.",
		}, []string{"route", "code"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "podlogs",
			Name:      "http_request_duration_seconds",
			Help:      "Engine API request latency. Follow requests last as long as the client stays.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		followers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "podlogs",
			Name:      "log_followers",
			Help:      "Open follow streams.",
		}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "podlogs",
			Name:      "container_running",
			Help:      "1 while the emulated container is running.",
		}, []string{"container"}),
	}

	m.registry.MustRegister(
		m.linesWritten, m.linesDropped, m.linesServed,
		m.requests, m.requestSeconds, m.followers, m.running,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveWrite counts a captured line. It is the log manager's write hook.
func (m *Metrics) ObserveWrite(entry domain.LogEntry) {
	m.linesWritten.WithLabelValues(entry.Container, entry.Stream.String()).Inc()
}

// ObserveDrop counts a line a follower missed. It is the log manager's drop hook.
func (m *Metrics) ObserveDrop(container string) {
	m.linesDropped.WithLabelValues(container).Inc()
}

// ObserveEvent tracks container state from supervisor events
func (m *Metrics) ObserveEvent(ev supervisor.Event) {
	v := 0.0
	if ev.Info.State.IsRunning() {
		v = 1
	}
	m.running.WithLabelValues(ev.Container).Set(v)
}

// Middleware records request counts and latency by route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
