package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "waypoint").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
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

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "waypoint",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the navigation pipeline.
type metrics struct {
	attemptsTotal  *prometheus.CounterVec
	completedTotal *prometheus.CounterVec
	abortsTotal    prometheus.Counter
	redirectsTotal prometheus.Counter
	duration       *prometheus.HistogramVec
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		attemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_attempts_total",
			Help:        "Total number of navigation attempts entering the pipeline",
			ConstLabels: config.ConstLabels,
		}, []string{"pattern"}),

		completedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_completed_total",
			Help:        "Total number of navigations that completed",
			ConstLabels: config.ConstLabels,
		}, []string{"pattern"}),

		abortsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_aborted_total",
			Help:        "Total number of navigations aborted by middleware",
			ConstLabels: config.ConstLabels,
		}),

		redirectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_redirects_total",
			Help:        "Total number of navigation redirects issued",
			ConstLabels: config.ConstLabels,
		}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration from attempt start to completion",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"pattern"}),
	}
}

type metricsMiddleware struct {
	metrics *metrics
}

// Prometheus creates middleware that collects Prometheus metrics for
// navigations.
//
// Metrics collected:
//   - waypoint_navigation_attempts_total: Counter of attempts by route pattern
//   - waypoint_navigations_completed_total: Counter of completed navigations
//   - waypoint_navigations_aborted_total: Counter of aborted pipeline runs
//   - waypoint_navigation_redirects_total: Counter of redirects issued
//   - waypoint_navigation_duration_seconds: Histogram of attempt-to-completion time
//
// Example:
//
//	navigator := nav.New(registry,
//	    nav.WithMiddleware(
//	        middleware.Prometheus(
//	            middleware.WithNamespace("myapp"),
//	        ),
//	    ),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) route.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return &metricsMiddleware{metrics: m}
}

func (m *metricsMiddleware) Name() string  { return "prometheus" }
func (m *metricsMiddleware) Priority() int { return 90 }

func (m *metricsMiddleware) Handle(ctx context.Context, mc *route.MiddlewareContext) (route.MiddlewareResult, error) {
	m.metrics.attemptsTotal.WithLabelValues(patternLabel(mc)).Inc()
	return route.Next(), nil
}

func (m *metricsMiddleware) AfterNavigation(ctx context.Context, mc *route.MiddlewareContext) {
	pattern := patternLabel(mc)
	m.metrics.completedTotal.WithLabelValues(pattern).Inc()
	m.metrics.duration.WithLabelValues(pattern).Observe(time.Since(mc.StartTime).Seconds())
}

func (m *metricsMiddleware) OnAborted(reason string) {
	m.metrics.abortsTotal.Inc()
}

// RecordRedirect records a navigation redirect. The navigator calls this
// each time a redirect hop is followed.
func RecordRedirect() {
	globalMetricsMu.Lock()
	m := globalMetrics
	globalMetricsMu.Unlock()
	if m != nil {
		m.redirectsTotal.Inc()
	}
}

// patternLabel keeps label cardinality bounded by using the route
// pattern, never the concrete path.
func patternLabel(mc *route.MiddlewareContext) string {
	if mc == nil || mc.Target == nil || mc.Target.Pattern == "" {
		return "/"
	}
	return mc.Target.Pattern
}
