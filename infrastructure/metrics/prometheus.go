// Package metrics exports pipeline metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-judicatura/internal/ports"
)

// Namespace prefixes every exported metric.
const Namespace = "judicatura"

// knownCounters maps counter names emitted by the pipeline to their label keys.
var knownCounters = map[string][]string{
	"llm_requests_total":           {"provider", "model", "status"},
	"llm_tokens_total":             {"provider", "model", "token_type"},
	"scoring_attempts_total":       {"outcome"},
	"scoring_candidates_total":     {"status"},
	"association_candidates_total": {"tier"},
	"budget_exceeded_total":        {"scope", "limit_type"},
}

// knownGauges maps gauge names to their label keys.
var knownGauges = map[string][]string{
	"budget_tokens_used": {"scope"},
	"budget_calls_used":  {"scope"},
	"budget_remaining":   {"scope", "resource"},
}

// knownHistograms maps histogram names to their label keys.
var knownHistograms = map[string][]string{
	"llm_latency_seconds": {"provider", "model", "status"},
}

// PrometheusMetrics implements ports.MetricsCollector. Known metrics get
// dedicated vectors with fixed labels; anything else lands in generic
// vectors labelled by metric name.
type PrometheusMetrics struct {
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec

	operationCounter *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	valueHistogram   *prometheus.HistogramVec
	systemGauges     *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers all vectors with reg. A nil reg uses the
// default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	pm := &PrometheusMetrics{
		counters:   make(map[string]*prometheus.CounterVec, len(knownCounters)),
		histograms: make(map[string]*prometheus.HistogramVec, len(knownHistograms)),
		gauges:     make(map[string]*prometheus.GaugeVec, len(knownGauges)),
		operationCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Pipeline events without a dedicated metric.",
		}, []string{"metric"}),
		operationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of pipeline operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		valueHistogram: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "observed_values",
			Help:      "Distribution of values without a dedicated histogram.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
		systemGauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "state",
			Help:      "Current pipeline state values.",
		}, []string{"metric"}),
	}

	for name, labels := range knownCounters {
		pm.counters[name] = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      "Pipeline counter " + name + ".",
		}, labels)
	}
	for name, labels := range knownHistograms {
		pm.histograms[name] = factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      "Pipeline histogram " + name + ".",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		}, labels)
	}
	for name, labels := range knownGauges {
		pm.gauges[name] = factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      "Pipeline gauge " + name + ".",
		}, labels)
	}
	return pm
}

// RecordLatency observes duration under the operation label.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter adds value to the named counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	if value < 0 {
		return
	}
	if vec, ok := pm.counters[metric]; ok {
		vec.WithLabelValues(labelValues(knownCounters[metric], labels)...).Add(value)
		return
	}
	pm.operationCounter.WithLabelValues(metric).Add(value)
}

// RecordGauge sets the named gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	if vec, ok := pm.gauges[metric]; ok {
		vec.WithLabelValues(labelValues(knownGauges[metric], labels)...).Set(value)
		return
	}
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value in the named histogram.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if vec, ok := pm.histograms[metric]; ok {
		vec.WithLabelValues(labelValues(knownHistograms[metric], labels)...).Observe(value)
		return
	}
	pm.valueHistogram.WithLabelValues(metric).Observe(value)
}

// labelValues orders labels by keys. Missing labels become "unknown".
func labelValues(keys []string, labels map[string]string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		v := labels[k]
		if v == "" {
			v = "unknown"
		}
		out[i] = v
	}
	return out
}
