// Package metrics holds the Prometheus collectors for the atlas server and CLI.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fjord_atlas"

// Metrics holds the Prometheus counters and histograms for the atlas.
type Metrics struct {
	// HTTP metrics.
	Requests        *prometheus.CounterVec   // labels: route, status
	RequestDuration *prometheus.HistogramVec // labels: route

	// Data source metrics.
	FileLoads    *prometheus.CounterVec   // labels: kind={fjords,regions,gdf,gates,lookup,bounds,means}, outcome={success,error}
	LoadDuration *prometheus.HistogramVec // labels: kind
	PlotDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		FileLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_loads_total",
			Help:      "Data file loads by kind and outcome.",
		}, []string{"kind", "outcome"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_load_duration_seconds",
			Help:      "Data file load duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"kind"}),
		PlotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plot_duration_seconds",
			Help:      "Map rendering duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.RequestDuration,
		m.FileLoads,
		m.LoadDuration,
		m.PlotDuration,
	)

	return m
}

// ObserveLoad records one file load of the given kind.
func (m *Metrics) ObserveLoad(kind string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.FileLoads.WithLabelValues(kind, outcome).Inc()
	m.LoadDuration.WithLabelValues(kind).Observe(seconds)
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
