package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "pagelet").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "pagelet",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects engine and HTTP metrics. It satisfies the engine's
// Observer interface, so one Metrics value wires both the dispatcher
// instrumentation and the HTTP middleware.
//
// Metrics collected:
//   - pagelet_requests_total: Counter of requests by path and status
//   - pagelet_request_duration_seconds: Histogram of request duration
//   - pagelet_fragment_renders_total: Counter of renders by fragment and outcome
//   - pagelet_fragment_render_duration_seconds: Histogram of render duration
//   - pagelet_flushes_total: Counter of transport flushes
//   - pagelet_flushed_bytes_total: Counter of bytes pushed to clients
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rendersTotal    *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	flushesTotal    prometheus.Counter
	flushedBytes    prometheus.Counter
}

// NewMetrics registers the pagelet metrics and returns the collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "requests_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "request_duration_seconds",
			Help:        "Request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"path"}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "fragment_renders_total",
			Help:        "Total number of fragment renders by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"fragment", "outcome"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "fragment_render_duration_seconds",
			Help:        "Fragment render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"fragment"}),

		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "flushes_total",
			Help:        "Total number of transport flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "flushed_bytes_total",
			Help:        "Total bytes pushed to clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveFragment records one fragment render.
func (m *Metrics) ObserveFragment(fragmentID string, d time.Duration, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.rendersTotal.WithLabelValues(fragmentID, outcome).Inc()
	m.renderDuration.WithLabelValues(fragmentID).Observe(d.Seconds())
}

// ObserveFlush records one transport flush.
func (m *Metrics) ObserveFlush(bytes int) {
	m.flushesTotal.Inc()
	m.flushedBytes.Add(float64(bytes))
}

// Handler returns the Fiber middleware recording HTTP request metrics.
func (m *Metrics) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Path()
		m.requestsTotal.WithLabelValues(path, strconv.Itoa(c.Response().StatusCode())).Inc()
		m.requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

		return err
	}
}
