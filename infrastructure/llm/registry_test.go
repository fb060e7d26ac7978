package llm

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelSpec(t *testing.T) {
	tests := []struct {
		spec, provider, model string
	}{
		{spec: "openrouter/google/gemini-2.5-flash-preview", provider: "openrouter", model: "google/gemini-2.5-flash-preview"},
		{spec: "anthropic/claude-3-5-sonnet-20241022", provider: "anthropic", model: "claude-3-5-sonnet-20241022"},
		{spec: "google", provider: "google", model: ""},
		{spec: "openai/", provider: "openai", model: ""},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			p, m := ParseModelSpec(tt.spec)
			assert.Equal(t, tt.provider, p)
			assert.Equal(t, tt.model, m)
		})
	}
}

func fakeRegistry(t *testing.T, env map[string]string) (*Registry, *fakeCore) {
	t.Helper()
	core := newFakeCore()
	RegisterProviderFactory("fake-registry-test", func(cfg ClientConfig) (CoreLLM, error) {
		core.SetModel(cfg.Model)
		return core, nil
	})

	r, err := NewRegistry(RegistryConfig{
		Providers: map[string]ProviderConfig{
			"fake": {Type: "fake-registry-test", EnvVar: "FAKE_KEY", DefaultModel: "vendor/default"},
		},
		DefaultProvider: "fake",
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	})
	require.NoError(t, err)
	return r, core
}

func TestRegistry_GetClient(t *testing.T) {
	t.Run("default model", func(t *testing.T) {
		r, _ := fakeRegistry(t, map[string]string{"FAKE_KEY": "k"})

		c, err := r.GetDefaultClient()

		require.NoError(t, err)
		assert.Equal(t, "vendor/default", c.GetModel())
	})

	t.Run("cached per spec", func(t *testing.T) {
		r, _ := fakeRegistry(t, map[string]string{"FAKE_KEY": "k"})

		a, err := r.GetClient("fake/vendor/x")
		require.NoError(t, err)
		b, err := r.GetClient("fake/vendor/x")
		require.NoError(t, err)
		d, err := r.GetClient("fake")
		require.NoError(t, err)

		assert.Same(t, a, b)
		assert.NotSame(t, a, d)
	})

	t.Run("concurrent callers share one client", func(t *testing.T) {
		r, _ := fakeRegistry(t, map[string]string{"FAKE_KEY": "k"})

		var wg sync.WaitGroup
		clients := make([]*Client, 8)
		for i := range clients {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := r.GetClient("fake/m")
				assert.NoError(t, err)
				clients[i] = c
			}()
		}
		wg.Wait()

		for _, c := range clients[1:] {
			assert.Same(t, clients[0], c)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		r, _ := fakeRegistry(t, nil)

		_, err := r.GetClient("fake")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "FAKE_KEY")
	})

	t.Run("unknown provider", func(t *testing.T) {
		r, _ := fakeRegistry(t, map[string]string{"FAKE_KEY": "k"})

		_, err := r.GetClient("mistral/large")

		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown provider "mistral"`)
	})

	t.Run("empty spec", func(t *testing.T) {
		r, _ := fakeRegistry(t, nil)
		_, err := r.GetClient("")
		assert.Error(t, err)
	})
}

func TestRegistry_Middleware(t *testing.T) {
	var seen []string
	core := newFakeCore()
	RegisterProviderFactory("fake-registry-mw", func(ClientConfig) (CoreLLM, error) { return core, nil })

	r, err := NewRegistry(RegistryConfig{
		Providers:       map[string]ProviderConfig{"fake": {Type: "fake-registry-mw", EnvVar: "K"}},
		DefaultProvider: "fake",
		LookupEnv:       func(string) (string, bool) { return "k", true },
		DefaultMiddleware: func(provider string) []Middleware {
			seen = append(seen, provider)
			return []Middleware{TimeoutMiddleware(0)}
		},
	})
	require.NoError(t, err)

	c, err := r.GetClient("fake/m")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "p", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"fake"}, seen)
	assert.Equal(t, 1, core.callCount())
}

func TestNewRegistry_Validation(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{})
	assert.Error(t, err)

	_, err = NewRegistry(RegistryConfig{DefaultProvider: "mistral"})
	assert.Error(t, err)

	r, err := NewRegistry(RegistryConfig{DefaultProvider: "openrouter"})
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "google", "openai", "openrouter"}, r.Providers())
}
