// Package observability carries the Prometheus metrics and OpenTelemetry
// tracing for the analyzer.
package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for pageweight.
type Metrics struct {
	analysesTotal     *prometheus.CounterVec
	analysisDuration  prometheus.Histogram
	collectorFailures *prometheus.CounterVec
	assetsCollected   *prometheus.CounterVec
	recommendations   *prometheus.CounterVec
	probesTotal       *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics on a specific registerer.
// Tests pass a fresh registry to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageweight_analyses_total",
				Help: "Total number of analysis runs",
			},
			[]string{"status"},
		),
		analysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pageweight_analysis_duration_seconds",
				Help:    "Wall time of a full analysis run",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		collectorFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageweight_collector_failures_total",
				Help: "Collector and strategy failures downgraded to empty results",
			},
			[]string{"source"},
		),
		assetsCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageweight_assets_collected_total",
				Help: "Assets discovered per origin",
			},
			[]string{"origin"},
		),
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageweight_recommendations_total",
				Help: "Recommendations produced per kind",
			},
			[]string{"kind"},
		),
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageweight_probes_total",
				Help: "Outbound network probes",
			},
			[]string{"result"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageweight_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pageweight_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// RecordAnalysis records one finished run. All recorders are nil-safe so the
// analyzer can run unmetered.
func (m *Metrics) RecordAnalysis(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(status).Inc()
	m.analysisDuration.Observe(d.Seconds())
}

// RecordCollectorFailure counts a recovered collector/strategy failure.
func (m *Metrics) RecordCollectorFailure(source string) {
	if m == nil {
		return
	}
	m.collectorFailures.WithLabelValues(source).Inc()
}

// RecordAssets counts discovered assets per origin.
func (m *Metrics) RecordAssets(origin string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.assetsCollected.WithLabelValues(origin).Add(float64(n))
}

// RecordRecommendations counts produced recommendations per kind.
func (m *Metrics) RecordRecommendations(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recommendations.WithLabelValues(kind).Add(float64(n))
}

// RecordProbe counts an outbound probe attempt by result.
func (m *Metrics) RecordProbe(result string) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns a Fiber handler serving the default Prometheus registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
