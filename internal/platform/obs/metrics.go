package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Optimizer outcomes.
const (
	OutcomeOptimized  = "optimized"
	OutcomeFallback   = "fallback"
	OutcomeUnresolved = "unresolved"
	OutcomeRejected   = "rejected"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ProviderDuration    *prometheus.HistogramVec
	OptimizeTotal       *prometheus.CounterVec
	RouteCacheTotal     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itinerary_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "itinerary_http_request_duration_seconds",
				Help:    "HTTP request latency distribution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "itinerary_route_provider_duration_seconds",
				Help:    "Latency of compute-routes calls to the routing provider",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"result"},
		),
		OptimizeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itinerary_optimize_total",
				Help: "Route optimization and traffic refresh outcomes",
			},
			[]string{"mode", "outcome"},
		),
		RouteCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itinerary_route_cache_total",
				Help: "Route response cache lookups",
			},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ProviderDuration,
		m.OptimizeTotal,
		m.RouteCacheTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveProvider(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) CountOptimize(mode, outcome string) {
	if m == nil {
		return
	}
	m.OptimizeTotal.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) CountCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RouteCacheTotal.WithLabelValues(result).Inc()
}
