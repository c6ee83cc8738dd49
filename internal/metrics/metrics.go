// Package metrics owns the Prometheus collectors of the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry plus the collectors the server updates.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	liveStreams prometheus.Gauge
	writes      *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "karte_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "karte_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		liveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "karte_live_streams",
			Help: "Open live change-feed connections.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "karte_writes_total",
			Help: "Karte writes by operation.",
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.liveStreams, m.writes,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// StreamOpened and StreamClosed track live feed connections.
func (m *Metrics) StreamOpened() { m.liveStreams.Inc() }
func (m *Metrics) StreamClosed() { m.liveStreams.Dec() }

// WatchSubscriptions exports count as karte_live_subscriptions. count is
// called on every scrape and must be safe for concurrent use.
func (m *Metrics) WatchSubscriptions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "karte_live_subscriptions",
		Help: "Change-feed subscriptions held by the hub, across all kartes.",
	}, func() float64 { return float64(count()) }))
}

// Write counts a successful karte write (create, save, editors, delete, import).
func (m *Metrics) Write(op string) { m.writes.WithLabelValues(op).Inc() }

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
