package application

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-judicatura/infrastructure/llm"
	"github.com/ahrav/go-judicatura/internal/ports"
)

// NewLLMRegistry builds a provider registry whose clients carry the
// configured budget, pacing and timeout plus metrics and tracing
// middleware. Every client of the registry shares one budget. Metrics and
// tracer may be nil.
func NewLLMRegistry(cfg ScoringConfig, metrics ports.MetricsCollector, tracer trace.Tracer) (*llm.Registry, error) {
	provider, _ := llm.ParseModelSpec(cfg.Model)

	tracker, err := llm.NewBudgetTracker(
		llm.Budget{MaxTokens: cfg.Budget.MaxTokens, MaxCalls: cfg.Budget.MaxCalls},
		llm.NewOTelBudgetObserver(metrics, "scoring"),
	)
	if err != nil {
		return nil, err
	}
	budget := llm.BudgetMiddleware(tracker)

	var limiter llm.Middleware
	if cfg.RateLimit.RPS > 0 {
		limiter = llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	reg, err := llm.NewRegistry(llm.RegistryConfig{
		DefaultProvider: provider,
		DefaultMiddleware: func(name string) []llm.Middleware {
			mw := []llm.Middleware{
				llm.TracingMiddleware(tracer, name),
				llm.MetricsMiddleware(metrics, name),
				budget,
			}
			if limiter != nil {
				mw = append(mw, limiter)
			}
			return append(mw, llm.TimeoutMiddleware(cfg.RequestTimeout))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM registry: %w", err)
	}
	return reg, nil
}

// NewLLMClient returns the client for the configured model spec.
func NewLLMClient(cfg ScoringConfig, metrics ports.MetricsCollector, tracer trace.Tracer) (ports.LLMClient, error) {
	reg, err := NewLLMRegistry(cfg, metrics, tracer)
	if err != nil {
		return nil, err
	}
	client, err := reg.GetClient(cfg.Model)
	if err != nil {
		return nil, err
	}
	return client, nil
}
