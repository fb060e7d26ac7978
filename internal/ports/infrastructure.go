// Package ports defines the interfaces between the pipeline stages and
// the infrastructure that backs them.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "system": string
	//   - "response_format": "json_object"
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens calculates the approximate token count for a given text.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ScoreStore persists scored entries outside the JSON checkpoint.
// Implementations must be safe to call after every candidate.
type ScoreStore interface {
	// SaveScore upserts the entry for entry.Folio within runID.
	SaveScore(ctx context.Context, runID string, entry domain.ScoredEntry, status domain.ScoreStatus, attempts int) error

	// ScoredFolios returns every folio with a stored entry, regardless of run.
	ScoredFolios(ctx context.Context) (map[string]struct{}, error)

	// Close releases the underlying resources.
	Close() error
}

// ConfigLoader loads configuration into a target struct.
type ConfigLoader interface {
	// Load populates config from the underlying source.
	Load(ctx context.Context, config any) error

	// Watch calls callback with each reloaded config until stop is called.
	Watch(ctx context.Context, config any, callback func(any)) (stop func(), err error)
}
