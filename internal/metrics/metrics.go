// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fiberpol"

// Collector owns a private registry so tests and embedded servers never
// collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	analyses *prometheus.CounterVec
	fitEvals prometheus.Histogram
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Pipeline operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fitEvals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_evaluations",
			Help:      "Forward-model evaluations per converged fit.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
		}),
	}

	c.registry.MustRegister(
		prometheus.NewGoCollector(),
		c.requests,
		c.duration,
		c.analyses,
		c.fitEvals,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (c *Collector) ObserveRequest(route string, code int, elapsed time.Duration) {
	c.requests.WithLabelValues(route, http.StatusText(code)).Inc()
	c.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveAnalysis counts one pipeline operation; outcome is "ok" or an
// error kind.
func (c *Collector) ObserveAnalysis(kind, outcome string) {
	c.analyses.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) ObserveFit(evaluations int) {
	c.fitEvals.Observe(float64(evaluations))
}
