// Package metrics records pipeline activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dealflow"

// Stage labels.
const (
	StageExtract = "extract"
	StageScore   = "score"
	StageMemo    = "memo"
)

// Metrics holds the pipeline collectors on a private registry so that a CLI
// run can export exactly what it did. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Runs counts pipeline stage invocations.
	// Labels: stage (extract, score, memo), result (ok, or the error code)
	Runs *prometheus.CounterVec

	// Duration tracks how long each stage takes.
	// Labels: stage
	Duration *prometheus.HistogramVec

	// Composite observes composite scores of successful scoring runs.
	Composite prometheus.Histogram

	// Recommendations counts rendered memos.
	// Labels: recommendation (pursue, monitor, pass)
	Recommendations *prometheus.CounterVec

	// Documents counts ingested documents.
	// Labels: outcome (stored, skipped, reextracted, failed)
	Documents *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of pipeline stage runs by result",
			},
			[]string{"stage", "result"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"stage"},
		),
		Composite: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scoring",
				Name:      "composite_score",
				Help:      "Composite scores of successful scoring runs",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
		),
		Recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "memo",
				Name:      "recommendations_total",
				Help:      "Total number of rendered memos by recommendation",
			},
			[]string{"recommendation"},
		),
		Documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "documents_total",
				Help:      "Total number of ingested documents by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRun records one stage run that started at start.
func (m *Metrics) ObserveRun(stage, result string, start time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(stage, result).Inc()
	m.Duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveComposite records a composite score.
func (m *Metrics) ObserveComposite(v float64) {
	if m == nil {
		return
	}
	m.Composite.Observe(v)
}

// CountRecommendation records a rendered memo.
func (m *Metrics) CountRecommendation(rec string) {
	if m == nil {
		return
	}
	m.Recommendations.WithLabelValues(rec).Inc()
}

// CountDocument records an ingest outcome.
func (m *Metrics) CountDocument(outcome string) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the collected metrics in the Prometheus text format,
// for pickup by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
