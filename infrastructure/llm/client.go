// Package llm provides completion clients for the hosted models that score
// candidate profiles. Providers (OpenRouter, OpenAI, Anthropic, Google)
// sit behind the CoreLLM interface; rate limiting, timeouts, metrics and
// tracing are layered on as Middleware.
//
// Basic usage:
//
//	client, err := llm.NewClient("openrouter", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENROUTER_API_KEY"),
//	    Model:  "google/gemini-2.5-flash-preview",
//	    Middleware: []llm.Middleware{
//	        llm.RateLimitMiddleware(1, 1),
//	        llm.TimeoutMiddleware(90 * time.Second),
//	    },
//	})
//	text, err := client.Complete(ctx, prompt, map[string]any{"response_format": "json_object"})
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ahrav/go-judicatura/internal/ports"
)

// CoreLLM is the minimal contract a provider implements. Middleware wraps
// a CoreLLM and returns another.
type CoreLLM interface {
	// DoRequest sends prompt and returns the generated text with input and
	// output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the configured model identifier.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM with a cross-cutting concern.
type Middleware func(CoreLLM) CoreLLM

// TokenEstimator approximates token counts before a request is sent.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig configures one provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the provider-specific model identifier.
	Model string

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string

	// Timeout bounds the HTTP client. Zero keeps the SDK default.
	Timeout time.Duration

	// Headers are sent with every request where the provider SDK allows it.
	Headers map[string]string

	// TokenEstimator overrides the default rune-based estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied so that the first entry is the outermost.
	Middleware []Middleware
}

var _ ports.LLMClient = (*Client)(nil)

// Client adapts a middleware-wrapped CoreLLM to ports.LLMClient.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

// NewClient builds a client for a registered provider type.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := GetProviderFactory(providerType)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}
	return NewClientFromCore(core, config.TokenEstimator, config.Middleware...), nil
}

// NewClientFromCore wraps an existing CoreLLM. A nil estimator selects
// RuneTokenEstimator.
func NewClientFromCore(core CoreLLM, estimator TokenEstimator, middleware ...Middleware) *Client {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	if estimator == nil {
		estimator = RuneTokenEstimator{}
	}
	return &Client{core: core, estimator: estimator}
}

// Complete returns the generated text for prompt.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage returns the generated text and token usage. Errors
// are wrapped in a ports.LLMError naming the model.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, options)
	if err != nil {
		return "", 0, 0, ports.NewLLMError(c.core.GetModel(), "Complete", err)
	}
	return response, tokensIn, tokensOut, nil
}

// EstimateTokens approximates the token count of text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the model of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// RuneTokenEstimator assumes about four characters per token. Characters
// are counted as runes so accented Spanish text is not over-counted.
type RuneTokenEstimator struct{}

// EstimateTokens returns ceil(runes/4).
func (RuneTokenEstimator) EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// EstimateTokens is the package-level RuneTokenEstimator shortcut used when
// a provider response carries no usage data.
func EstimateTokens(text string) int { return RuneTokenEstimator{}.EstimateTokens(text) }

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[string]ProviderFactory{}
)

// RegisterProviderFactory registers or replaces the factory for a provider type.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[providerType] = factory
}

// GetProviderFactory returns the factory registered for providerType.
func GetProviderFactory(providerType string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[providerType]
	return f, ok
}

// modelHolder is embedded by providers for concurrency-safe model access.
type modelHolder struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the current model.
func (m *modelHolder) GetModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model
}

// SetModel replaces the current model.
func (m *modelHolder) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}
