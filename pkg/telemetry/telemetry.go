// Package telemetry records batch metrics on a private Prometheus registry.
//
// A batch run is short lived, so metrics are not served over HTTP; they can
// be dumped in the node exporter textfile format when the run ends.
package telemetry

import (
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the tracegen collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	groups        *prometheus.CounterVec
	divergence    prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	syntheticRows prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		groups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracegen_groups_total",
			Help: "Groups processed, by stage and outcome",
		}, []string{"stage", "outcome"}),
		divergence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracegen_divergence",
			Help:    "KL divergence of synthetic groups from their reference",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracegen_stage_duration_seconds",
			Help:    "Wall time of a batch stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		syntheticRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracegen_synthetic_rows_total",
			Help: "Synthetic rows written",
		}),
	}
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// GroupDone counts one group of stage with outcome.
func (m *Metrics) GroupDone(stage, outcome string) {
	if m == nil {
		return
	}
	m.groups.WithLabelValues(stage, outcome).Inc()
}

// ObserveDivergence records a validated group's divergence.
func (m *Metrics) ObserveDivergence(kl float64) {
	if m == nil {
		return
	}
	m.divergence.Observe(kl)
}

// ObserveStage records the duration of a stage in seconds.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// AddSyntheticRows counts written synthetic rows.
func (m *Metrics) AddSyntheticRows(n int) {
	if m == nil {
		return
	}
	m.syntheticRows.Add(float64(n))
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
