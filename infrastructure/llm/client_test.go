package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-judicatura/internal/ports"
)

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		config   ClientConfig
		wantErr  string
	}{
		{name: "missing key", provider: "openai", config: ClientConfig{Model: "m"}, wantErr: "API key"},
		{name: "missing model", provider: "openai", config: ClientConfig{APIKey: "k"}, wantErr: "model is required"},
		{name: "unknown provider", provider: "nope", config: ClientConfig{APIKey: "k", Model: "m"}, wantErr: "unknown provider"},
		{
			name:     "bad base URL",
			provider: "openrouter",
			config:   ClientConfig{APIKey: "k", Model: "m", BaseURL: "ftp://example.org"},
			wantErr:  "scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.provider, tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClient_CustomFactory(t *testing.T) {
	core := newFakeCore()
	RegisterProviderFactory("fake-client-test", func(cfg ClientConfig) (CoreLLM, error) {
		core.SetModel(cfg.Model)
		return core, nil
	})

	client, err := NewClient("fake-client-test", ClientConfig{APIKey: "k", Model: "scoring-model"})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
	assert.Equal(t, "scoring-model", client.GetModel())
}

func TestClient_WrapsErrors(t *testing.T) {
	core := newFakeCore()
	core.err = NewProviderError("openrouter", ErrorTypeRateLimit, 429, "slow down", nil)
	client := NewClientFromCore(core, nil)

	_, err := client.Complete(context.Background(), "prompt", nil)

	var llmErr *ports.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, "test-model", llmErr.Model)
	assert.Equal(t, "Complete", llmErr.Operation)
	assert.True(t, llmErr.IsRetryable())
	var pe *ProviderError
	assert.True(t, errors.As(err, &pe), "provider error stays reachable")
}

func TestNewClientFromCore_MiddlewareOrder(t *testing.T) {
	// Given two middleware that record the order they run in
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &orderLLM{next: next, name: name, order: &order}
		}
	}
	client := NewClientFromCore(newFakeCore(), nil, tag("outer"), tag("inner"))

	// When completing
	_, in, out, err := client.CompleteWithUsage(context.Background(), "p", nil)

	// Then the first middleware is outermost
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, 12, in)
	assert.Equal(t, 7, out)
}

type orderLLM struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (o *orderLLM) DoRequest(ctx context.Context, p string, opts map[string]any) (string, int, int, error) {
	*o.order = append(*o.order, o.name)
	return o.next.DoRequest(ctx, p, opts)
}

func (o *orderLLM) GetModel() string  { return o.next.GetModel() }
func (o *orderLLM) SetModel(m string) { o.next.SetModel(m) }

func TestRuneTokenEstimator(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "abc", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: "Ñuñoa", want: 2},
		{text: "áéíóú", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, RuneTokenEstimator{}.EstimateTokens(tt.text))
		})
	}

	n, err := NewClientFromCore(newFakeCore(), nil).EstimateTokens("abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
