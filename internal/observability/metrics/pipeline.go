package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oncoassist/triage/internal/core/domain"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	classificationTotal    *prometheus.CounterVec
	classificationDuration *prometheus.HistogramVec
	classificationInFlight prometheus.Gauge
	neighborsReturned      prometheus.Histogram
	degradedSignalsTotal   *prometheus.CounterVec
}

// NewPipelineMetrics binds the service name once as a constant label;
// record methods only carry per-observation dimensions.
func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	classificationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "onco",
			Subsystem:   "pipeline",
			Name:        "classification_total",
			Help:        "Total classified documents by category and status.",
			ConstLabels: constLabels,
		},
		[]string{"category", "status"},
	)
	classificationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "onco",
			Subsystem:   "pipeline",
			Name:        "classification_duration_seconds",
			Help:        "Classification pipeline duration in seconds by status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	classificationInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "onco",
			Subsystem:   "pipeline",
			Name:        "classification_in_flight",
			Help:        "Number of in-flight classification pipelines.",
			ConstLabels: constLabels,
		},
	)
	neighborsReturned := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "onco",
			Subsystem:   "pipeline",
			Name:        "neighbors_returned",
			Help:        "Distribution of similar cases retrieved per classification.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13},
			ConstLabels: constLabels,
		},
	)
	degradedSignalsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "onco",
			Subsystem:   "pipeline",
			Name:        "degraded_signals_total",
			Help:        "Total degraded pipeline signals by kind.",
			ConstLabels: constLabels,
		},
		[]string{"signal"},
	)

	registry.MustRegister(
		classificationTotal,
		classificationDuration,
		classificationInFlight,
		neighborsReturned,
		degradedSignalsTotal,
	)

	return &PipelineMetrics{
		registry:               registry,
		classificationTotal:    classificationTotal,
		classificationDuration: classificationDuration,
		classificationInFlight: classificationInFlight,
		neighborsReturned:      neighborsReturned,
		degradedSignalsTotal:   degradedSignalsTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartClassification() {
	m.classificationInFlight.Inc()
}

func (m *PipelineMetrics) FinishClassification(result *domain.ClassificationResult, duration time.Duration, err error) {
	m.classificationInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	category := "none"
	if result != nil {
		category = string(result.Category)
		m.neighborsReturned.Observe(float64(len(result.Evidence.SimilarCases)))
	}

	m.classificationTotal.WithLabelValues(category, status).Inc()
	m.classificationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordDegradedSignal(signal string) {
	if signal == "" {
		signal = "unknown"
	}
	m.degradedSignalsTotal.WithLabelValues(signal).Inc()
}
