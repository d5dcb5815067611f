// Package observability provides Prometheus metrics for the search service.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and the collectors exposed by the service.
type Metrics struct {
	registry *prometheus.Registry

	// Provider gateway metrics.
	ProviderRequests *prometheus.CounterVec
	ProviderRetries  prometheus.Counter
	ProviderDuration prometheus.Histogram

	// Cache metrics, labelled by backend and hit/miss/error outcome.
	CacheOps *prometheus.CounterVec

	// HTTP handler metrics.
	RequestDuration *prometheus.HistogramVec

	SearchesTotal prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors registered on a
// dedicated registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Provider search requests by outcome",
			},
			[]string{"outcome"},
		),
		ProviderRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "provider_retries_total",
				Help: "Provider request retry attempts",
			},
		),
		ProviderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_cache_operations_total",
				Help: "Result cache operations by backend and result",
			},
			[]string{"backend", "result"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SearchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "image_searches_total",
				Help: "Image searches performed",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.ProviderRequests,
		m.ProviderRetries,
		m.ProviderDuration,
		m.CacheOps,
		m.RequestDuration,
		m.SearchesTotal,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
