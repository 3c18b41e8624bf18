package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "penguin"

// PipelineMetrics holds the per-run Prometheus collectors. Each instance owns
// a private registry so runs and tests never share state.
type PipelineMetrics struct {
	Registry *prometheus.Registry

	RecordsLoaded       prometheus.Counter
	DuplicateIDs        prometheus.Counter
	RecordsSkipped      *prometheus.CounterVec
	FlipperGroups       prometheus.Gauge
	ThresholdPercentage prometheus.Gauge
	StageDuration       *prometheus.GaugeVec
}

// NewPipelineMetrics creates and registers the pipeline collectors
func NewPipelineMetrics() *PipelineMetrics {
	m := &PipelineMetrics{
		Registry: prometheus.NewRegistry(),
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_loaded_total",
			Help:      "Specimen records kept in the collection after loading.",
		}),
		DuplicateIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicate_ids_total",
			Help:      "Input rows whose identifier was already present.",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_skipped_total",
			Help:      "Records excluded from an analysis because a required field was missing.",
		}, []string{"analysis"}),
		FlipperGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "flipper_groups",
			Help:      "Number of (island, sex) groups with a flipper length mean.",
		}),
		ThresholdPercentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "threshold_percentage",
			Help:      "Percentage of the filtered subgroup above its mean body mass.",
		}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage in the last run.",
		}, []string{"stage"}),
	}

	m.Registry.MustRegister(
		m.RecordsLoaded,
		m.DuplicateIDs,
		m.RecordsSkipped,
		m.FlipperGroups,
		m.ThresholdPercentage,
		m.StageDuration,
	)

	return m
}

// ObserveStage records how long a stage took, measured from start.
func (m *PipelineMetrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Set(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the Prometheus text exposition format,
// suitable for the node exporter textfile collector.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
