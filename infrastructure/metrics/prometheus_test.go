package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestPrometheusMetrics_KnownCounters(t *testing.T) {
	pm, _ := newTestMetrics(t)

	labels := map[string]string{"provider": "openrouter", "model": "google/gemini-2.5-flash-preview", "status": "success"}
	pm.RecordCounter("llm_requests_total", 1, labels)
	pm.RecordCounter("llm_requests_total", 1, labels)
	pm.RecordCounter("scoring_candidates_total", 1, map[string]string{"status": "OK"})
	pm.RecordCounter("association_candidates_total", 1, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		pm.counters["llm_requests_total"].WithLabelValues("openrouter", "google/gemini-2.5-flash-preview", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.counters["scoring_candidates_total"].WithLabelValues("OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.counters["association_candidates_total"].WithLabelValues("unknown")))
}

func TestPrometheusMetrics_KnownGauges(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordGauge("budget_tokens_used", 1200, map[string]string{"scope": "scoring"})
	pm.RecordGauge("budget_tokens_used", 1500, map[string]string{"scope": "scoring"})
	pm.RecordGauge("budget_remaining", 8500, map[string]string{"scope": "scoring", "resource": "tokens"})

	assert.Equal(t, 1500.0, testutil.ToFloat64(pm.gauges["budget_tokens_used"].WithLabelValues("scoring")))
	assert.Equal(t, 8500.0, testutil.ToFloat64(pm.gauges["budget_remaining"].WithLabelValues("scoring", "tokens")))
}

func TestPrometheusMetrics_FallbackVectors(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordCounter("custom_events", 3, nil)
	pm.RecordCounter("custom_events", -1, nil)
	pm.RecordGauge("pending_candidates", 42, nil)
	pm.RecordLatency("normalize", 150*time.Millisecond, nil)
	pm.RecordHistogram("prompt_chars", 1200, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(pm.operationCounter.WithLabelValues("custom_events")))
	assert.Equal(t, 42.0, testutil.ToFloat64(pm.systemGauges.WithLabelValues("pending_candidates")))

	count, err := testutil.GatherAndCount(reg, "judicatura_operation_duration_seconds", "judicatura_observed_values")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPrometheusMetrics_Exposition(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordCounter("scoring_attempts_total", 1, map[string]string{"outcome": "parse_error"})

	expected := `
# HELP judicatura_scoring_attempts_total Pipeline counter scoring_attempts_total.
# TYPE judicatura_scoring_attempts_total counter
judicatura_scoring_attempts_total{outcome="parse_error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "judicatura_scoring_attempts_total"))
}

func TestPrometheusMetrics_LatencyHistogram(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordHistogram("llm_latency_seconds", 3.2, map[string]string{"provider": "anthropic", "model": "m", "status": "success"})

	count, err := testutil.GatherAndCount(reg, "judicatura_llm_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewPrometheusMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics(prometheus.NewRegistry())
		NewPrometheusMetrics(prometheus.NewRegistry())
	})
}
