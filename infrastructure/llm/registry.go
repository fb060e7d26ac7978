package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProviderConfig describes how to build clients for one provider.
type ProviderConfig struct {
	// Type is the registered factory name.
	Type string
	// EnvVar names the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when a spec names only the provider.
	DefaultModel string
	// BaseURL overrides the factory's endpoint.
	BaseURL string
	// Headers are added to every request.
	Headers map[string]string
	// Middleware is applied inside the registry-wide middleware.
	Middleware []Middleware
}

// DefaultProviders lists the providers the scorer can address by spec.
var DefaultProviders = map[string]ProviderConfig{
	"openrouter": {
		Type:         "openrouter",
		EnvVar:       "OPENROUTER_API_KEY",
		DefaultModel: OpenRouterDefaultModel,
		BaseURL:      OpenRouterBaseURL,
	},
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: GoogleDefaultModel,
	},
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Providers       map[string]ProviderConfig
	DefaultProvider string
	DefaultTimeout  time.Duration
	// DefaultMiddleware wraps every client the registry creates. It may
	// depend on the provider name, for labelled metrics and spans.
	DefaultMiddleware func(provider string) []Middleware
	// LookupEnv reads API keys. Nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Registry creates and caches clients addressed by "provider/model" specs.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]ProviderConfig
	defaultP   string
	timeout    time.Duration
	middleware func(string) []Middleware
	lookupEnv  func(string) (string, bool)
	clients    map[string]*Client
}

// NewRegistry validates config and returns an empty Registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.Providers == nil {
		config.Providers = DefaultProviders
	}
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}
	if _, ok := config.Providers[config.DefaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}
	if config.LookupEnv == nil {
		config.LookupEnv = os.LookupEnv
	}
	return &Registry{
		providers:  config.Providers,
		defaultP:   config.DefaultProvider,
		timeout:    config.DefaultTimeout,
		middleware: config.DefaultMiddleware,
		lookupEnv:  config.LookupEnv,
		clients:    make(map[string]*Client),
	}, nil
}

// ParseModelSpec splits "provider/model" at the first slash, so OpenRouter
// models such as "openrouter/google/gemini-2.5-flash-preview" keep their
// vendor prefix. A bare provider yields an empty model.
func ParseModelSpec(spec string) (provider, model string) {
	provider, model, _ = strings.Cut(spec, "/")
	return provider, model
}

// GetDefaultClient returns the default provider's client for its default model.
func (r *Registry) GetDefaultClient() (*Client, error) {
	return r.GetClient(r.defaultP)
}

// GetClient returns the cached client for spec, creating it on first use.
func (r *Registry) GetClient(spec string) (*Client, error) {
	if spec == "" {
		return nil, fmt.Errorf("model spec cannot be empty")
	}
	provider, model := ParseModelSpec(spec)
	pc, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (known: %s)", provider, strings.Join(r.Providers(), ", "))
	}
	if model == "" {
		model = pc.DefaultModel
	}
	key := provider + "/" + model

	r.mu.RLock()
	c, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[key]; ok {
		return c, nil
	}

	apiKey, _ := r.lookupEnv(pc.EnvVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider %q", pc.EnvVar, provider)
	}

	var mw []Middleware
	if r.middleware != nil {
		mw = append(mw, r.middleware(provider)...)
	}
	mw = append(mw, pc.Middleware...)

	c, err := NewClient(pc.Type, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    pc.BaseURL,
		Timeout:    r.timeout,
		Headers:    pc.Headers,
		Middleware: mw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client %q: %w", key, err)
	}
	r.clients[key] = c
	return c, nil
}

// Providers returns the configured provider names in sorted order.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
