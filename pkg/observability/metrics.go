package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// NewMetrics creates the service metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"code", "method", "path"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of latencies for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"code", "method", "path"},
		),
		AuthzDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authz_decisions_total",
				Help:      "Authorization guard verdicts by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.AuthzDecisions)
	return m
}

// Metrics holds the Prometheus metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthzDecisions  *prometheus.CounterVec
}

// ObserveDecision counts one guard verdict.
func (m *Metrics) ObserveDecision(verdict string) {
	m.AuthzDecisions.WithLabelValues(verdict).Inc()
}

// PrometheusMiddleware returns a Gin middleware that records Prometheus metrics for HTTP requests.
// Paths are labelled by route template so that ids do not explode cardinality.
func PrometheusMiddleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		metrics.RequestsTotal.WithLabelValues(statusCode, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(statusCode, method, path).Observe(time.Since(start).Seconds())
	}
}

// PrometheusHandler returns an http.Handler exposing the metrics gathered by g.
func PrometheusHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
