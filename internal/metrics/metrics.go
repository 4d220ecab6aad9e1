package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/treefrog-dev/frogup/internal/probe"
	"github.com/treefrog-dev/frogup/internal/version"
)

// Metrics holds a dedicated Prometheus registry and the instruments fed by
// probe outcomes.
type Metrics struct {
	Registry *prometheus.Registry

	probeDuration *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	up            *prometheus.GaugeVec
}

// New creates a Metrics bundle with all instruments registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frogup_probe_duration_seconds",
			Help:    "Duration of individual dependency probes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"dependency"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frogup_probe_outcomes_total",
			Help: "Probe outcomes by dependency and status.",
		}, []string{"dependency", "status"}),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "frogup_dependency_up",
			Help: "Whether the most recent probe of the dependency succeeded.",
		}, []string{"dependency"}),
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "frogup_build_info",
		Help: "Build information.",
		ConstLabels: prometheus.Labels{
			"version": version.Version,
			"commit":  version.Commit,
		},
	})
	buildInfo.Set(1)

	reg.MustRegister(m.probeDuration, m.outcomes, m.up, buildInfo)
	return m
}

// Observe records one probe result for a dependency.
func (m *Metrics) Observe(dependency string, r probe.Result) {
	m.probeDuration.WithLabelValues(dependency).Observe(r.ResponseTime.Seconds())

	status := "unready"
	var upVal float64
	if r.Healthy {
		status = "ready"
		upVal = 1
	}
	m.outcomes.WithLabelValues(dependency, status).Inc()
	m.up.WithLabelValues(dependency).Set(upVal)
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
