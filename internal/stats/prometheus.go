package stats

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics espone le metriche della pipeline in formato Prometheus.
// Tutti i metodi sono sicuri su receiver nil, così i componenti core
// possono essere costruiti senza metriche (es. nei test).
type Metrics struct {
	runsTotal             *prometheus.CounterVec
	runDuration           prometheus.Histogram
	stageDuration         *prometheus.HistogramVec
	stageFailures         *prometheus.CounterVec
	capabilityResolutions *prometheus.CounterVec
	capabilityInvocations *prometheus.CounterVec
	postProcessFailures   *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default restituisce le metriche registrate sul registry globale di Prometheus
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer, "")
	})
	return defaultMetrics
}

// NewMetrics crea e registra le metriche su reg
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "contentfactory"
	}

	factory := promauto.With(reg)

	return &Metrics{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of pipeline runs by status",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_run_duration_seconds",
				Help:      "Duration of completed pipeline runs in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of a single pipeline stage in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
			},
			[]string{"stage"},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_failures_total",
				Help:      "Total number of stage failures by stage",
			},
			[]string{"stage"},
		),
		capabilityResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capability_resolutions_total",
				Help:      "Capability resolutions by capability and outcome (loaded, fallback)",
			},
			[]string{"capability", "outcome"},
		),
		capabilityInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capability_invocations_total",
				Help:      "Capability invocations by capability and status",
			},
			[]string{"capability", "status"},
		),
		postProcessFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "postprocess_failures_total",
				Help:      "Post-processor failures by processor",
			},
			[]string{"processor"},
		),
	}
}

// RecordRun registra l'esito di una run
func (m *Metrics) RecordRun(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status(success)).Inc()
	if success {
		m.runDuration.Observe(duration.Seconds())
	}
}

// RecordStage registra la durata e l'esito di uno stage
func (m *Metrics) RecordStage(stage string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if !success {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordResolution registra la risoluzione di una capability
func (m *Metrics) RecordResolution(capability string, fallback bool) {
	if m == nil {
		return
	}
	outcome := "loaded"
	if fallback {
		outcome = "fallback"
	}
	m.capabilityResolutions.WithLabelValues(capability, outcome).Inc()
}

// RecordInvocation registra una chiamata a una capability
func (m *Metrics) RecordInvocation(capability string, success bool) {
	if m == nil {
		return
	}
	m.capabilityInvocations.WithLabelValues(capability, status(success)).Inc()
}

// RecordPostProcessFailure registra il fallimento di un post-processor
func (m *Metrics) RecordPostProcessFailure(processor string) {
	if m == nil {
		return
	}
	m.postProcessFailures.WithLabelValues(processor).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
