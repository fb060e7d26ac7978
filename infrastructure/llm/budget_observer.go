package llm

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/ports"
)

// Budget metric names.
const (
	MetricBudgetExceeded  = "budget_exceeded_total"
	MetricBudgetTokens    = "budget_tokens_used"
	MetricBudgetCalls     = "budget_calls_used"
	MetricBudgetRemaining = "budget_remaining"
)

const (
	budgetWarningThreshold  = 0.8
	budgetCriticalThreshold = 0.9
)

var _ BudgetObserver = (*OTelBudgetObserver)(nil)

// OTelBudgetObserver annotates the active span with budget usage and
// reports it as gauges. Threshold crossings become span events.
type OTelBudgetObserver struct {
	metrics ports.MetricsCollector
	scope   string
}

// NewOTelBudgetObserver creates an observer labelling metrics with scope.
// metrics may be nil.
func NewOTelBudgetObserver(metrics ports.MetricsCollector, scope string) *OTelBudgetObserver {
	return &OTelBudgetObserver{metrics: metrics, scope: scope}
}

// PreCheck records usage and threshold events before a request.
func (o *OTelBudgetObserver) PreCheck(ctx context.Context, usage Usage, budget Budget) {
	span := trace.SpanFromContext(ctx)
	o.setAttributes(span, usage, budget)
	thresholdEvent(span, "tokens", usage.Tokens, budget.MaxTokens)
	thresholdEvent(span, "calls", usage.Calls, budget.MaxCalls)
}

// PostCheck records the updated usage, or the exceeded limit on rejection.
func (o *OTelBudgetObserver) PostCheck(ctx context.Context, usage Usage, budget Budget, _ time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	o.setAttributes(span, usage, budget)

	var be *domain.BudgetExceededError
	if errors.As(err, &be) {
		span.AddEvent("budget.exceeded", trace.WithAttributes(
			attribute.String("limit_type", be.LimitType),
			attribute.Int64("limit_value", be.Limit),
			attribute.Int64("used_value", be.Used),
		))
		if o.metrics != nil {
			o.metrics.RecordCounter(MetricBudgetExceeded, 1, map[string]string{
				"scope":      o.scope,
				"limit_type": be.LimitType,
			})
		}
		return
	}
	o.updateMetrics(usage, budget)
}

func (o *OTelBudgetObserver) setAttributes(span trace.Span, usage Usage, budget Budget) {
	span.SetAttributes(
		attribute.String("budget.scope", o.scope),
		attribute.Int64("budget.tokens_used", usage.Tokens),
		attribute.Int64("budget.calls_made", usage.Calls),
	)
	if budget.MaxTokens > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_tokens", budget.MaxTokens),
			attribute.Int64("budget.remaining_tokens", budget.MaxTokens-usage.Tokens),
		)
	}
	if budget.MaxCalls > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_calls", budget.MaxCalls),
			attribute.Int64("budget.remaining_calls", budget.MaxCalls-usage.Calls),
		)
	}
}

func thresholdEvent(span trace.Span, resource string, used, limit int64) {
	if limit <= 0 {
		return
	}
	ratio := float64(used) / float64(limit)
	name := ""
	switch {
	case ratio >= budgetCriticalThreshold:
		name = "budget.threshold.critical"
	case ratio >= budgetWarningThreshold:
		name = "budget.threshold.warning"
	default:
		return
	}
	span.AddEvent(name, trace.WithAttributes(
		attribute.String("resource_type", resource),
		attribute.Float64("usage_percentage", ratio*100),
	))
}

func (o *OTelBudgetObserver) updateMetrics(usage Usage, budget Budget) {
	if o.metrics == nil {
		return
	}
	labels := map[string]string{"scope": o.scope}
	o.metrics.RecordGauge(MetricBudgetTokens, float64(usage.Tokens), labels)
	o.metrics.RecordGauge(MetricBudgetCalls, float64(usage.Calls), labels)
	if budget.MaxTokens > 0 {
		o.metrics.RecordGauge(MetricBudgetRemaining, float64(budget.MaxTokens-usage.Tokens), withLabel(labels, "resource", "tokens"))
	}
	if budget.MaxCalls > 0 {
		o.metrics.RecordGauge(MetricBudgetRemaining, float64(budget.MaxCalls-usage.Calls), withLabel(labels, "resource", "calls"))
	}
}
