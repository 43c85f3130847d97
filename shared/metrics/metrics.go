// shared/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the multa-service. Each instance owns
// its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Adjustments       *prometheus.CounterVec
	LiveSubscriptions *prometheus.GaugeVec
	FeedEvents        *prometheus.CounterVec
	OrphanSweeps      *prometheus.CounterVec
	OrphansRemoved    prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multa",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "multa",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multa",
			Name:      "adjustments_total",
			Help:      "Balance adjustments by kind (multa, payment) and result.",
		}, []string{"kind", "result"}),
		LiveSubscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "multa",
			Name:      "live_subscriptions",
			Help:      "Open live subscriptions by kind (roster, teams).",
		}, []string{"kind"}),
		FeedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multa",
			Name:      "feed_events_total",
			Help:      "Change feed events by direction (published, received, dropped).",
		}, []string{"direction"}),
		OrphanSweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multa",
			Name:      "orphan_sweeps_total",
			Help:      "Orphan membership sweeps by result.",
		}, []string{"result"}),
		OrphansRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multa",
			Name:      "orphan_memberships_removed_total",
			Help:      "Player memberships removed because their team no longer exists.",
		}),
	}
	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Adjustments,
		m.LiveSubscriptions,
		m.FeedEvents,
		m.OrphanSweeps,
		m.OrphansRemoved,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
