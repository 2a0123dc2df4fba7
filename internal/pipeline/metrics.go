package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the pipeline's Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "saferoute").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the pipeline metrics.
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

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "saferoute",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors updated after every pass.
type Metrics struct {
	passesTotal   *prometheus.CounterVec
	passDuration  prometheus.Histogram
	routes        prometheus.Gauge
	conflicts     prometheus.Counter
	generation    prometheus.Gauge
	writesTotal   prometheus.Counter
	publishErrors prometheus.Counter
}

// NewMetrics registers the pipeline metrics:
//   - saferoute_passes_total: passes by result (ok, error)
//   - saferoute_pass_duration_seconds: pass duration
//   - saferoute_routes: route count of the last good table
//   - saferoute_conflicts_total: conflicting route pairs seen
//   - saferoute_generation: generation of the last pass
//   - saferoute_artifact_writes_total: passes that replaced the artifact
//   - saferoute_publish_errors_total: failed artifact uploads
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "passes_total",
			Help:        "Total number of generation passes by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "pass_duration_seconds",
			Help:        "Generation pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		routes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "routes",
			Help:        "Number of routes in the last successfully built table",
			ConstLabels: config.ConstLabels,
		}),

		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "conflicts_total",
			Help:        "Total number of conflicting routes detected",
			ConstLabels: config.ConstLabels,
		}),

		generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "generation",
			Help:        "Generation number of the most recent pass",
			ConstLabels: config.ConstLabels,
		}),

		writesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "artifact_writes_total",
			Help:        "Total number of passes that replaced the artifact",
			ConstLabels: config.ConstLabels,
		}),

		publishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "publish_errors_total",
			Help:        "Total number of failed artifact uploads",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) observe(o Outcome, conflicts int) {
	if m == nil {
		return
	}
	m.generation.Set(float64(o.Generation))
	m.passDuration.Observe(o.Duration.Seconds())
	if conflicts > 0 {
		m.conflicts.Add(float64(conflicts))
	}
	if o.Err != nil {
		m.passesTotal.WithLabelValues("error").Inc()
		return
	}
	m.passesTotal.WithLabelValues("ok").Inc()
	m.routes.Set(float64(o.Routes))
	if o.Changed {
		m.writesTotal.Inc()
	}
}

func (m *Metrics) publishFailed() {
	if m != nil {
		m.publishErrors.Inc()
	}
}
