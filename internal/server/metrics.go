package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the API. Each instance has its own registry.
type Metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	alignments *prometheus.HistogramVec
	rejected   prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diachron_requests_total",
			Help: "Total API requests by endpoint and status code",
		}, []string{"endpoint", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diachron_request_duration_seconds",
			Help:    "Latency of API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		alignments: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diachron_alignment_duration_seconds",
			Help:    "Time spent solving Procrustes alignments",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"reference"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diachron_rate_limited_total",
			Help: "Drift requests rejected by the rate limiter",
		}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.alignments, m.rejected,
		prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return m
}

// ObserveAlignment records a solved alignment. It matches the aligner observer signature.
func (m *Metrics) ObserveAlignment(_, referenceID string, d time.Duration) {
	m.alignments.WithLabelValues(referenceID).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
