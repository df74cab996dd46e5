// Package metrics exposes Prometheus collectors for probes, comparisons and
// HTTP handlers. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

const (
	RoleEdge   = "edge"
	RoleOrigin = "origin"
)

var (
	latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	speedupBuckets = []float64{0.25, 0.5, 1, 1.5, 2, 3, 5, 10, 25}
)

type Metrics struct {
	registry        *prometheus.Registry
	probes          *prometheus.CounterVec
	probeDuration   *prometheus.HistogramVec
	speedup         prometheus.Histogram
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgespeed",
			Name:      "probes_total",
			Help:      "Probes by role, source and whether the breakdown was estimated",
		}, []string{"role", "source", "estimated"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edgespeed",
			Name:      "probe_duration_seconds",
			Help:      "Total elapsed time of probed exchanges",
			Buckets:   latencyBuckets,
		}, []string{"role"}),
		speedup: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "edgespeed",
			Name:      "comparison_speedup_ratio",
			Help:      "Origin over edge time of finished comparisons",
			Buckets:   speedupBuckets,
		}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgespeed",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edgespeed",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   latencyBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.probes,
		m.probeDuration,
		m.speedup,
		m.requestTotal,
		m.requestDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveProbe(role string, ms models.Measurement) {
	if m == nil {
		return
	}
	m.probes.With(prometheus.Labels{
		"role":      role,
		"source":    ms.Source,
		"estimated": strconv.FormatBool(ms.IsEstimated),
	}).Inc()
	m.probeDuration.With(prometheus.Labels{"role": role}).
		Observe((time.Duration(ms.TotalTime) * time.Millisecond).Seconds())
}

func (m *Metrics) ObserveComparison(speedup float64) {
	if m == nil {
		return
	}
	m.speedup.Observe(speedup)
}

// Instrument records count and latency of every request served by next.
func (m *Metrics) Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		recorder := &responseRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, r)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		m.requestTotal.With(labels).Inc()
		m.requestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	return rr.ResponseWriter.Write(b)
}
