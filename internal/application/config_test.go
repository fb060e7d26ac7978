package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-judicatura/internal/district"
	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/normalize"
	"github.com/ahrav/go-judicatura/internal/ports"
)

func loadString(t *testing.T, doc string) (Config, error) {
	t.Helper()
	l, err := NewConfigLoader("")
	require.NoError(t, err)
	return l.LoadReader(strings.NewReader(doc))
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 5, cfg.Scoring.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Scoring.RetryDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scoring.InterRequestDelay)
	assert.Equal(t, 8000, cfg.Scoring.CVMaxChars)
	assert.Len(t, cfg.Normalize.Categories, 6)
}

func TestLoadReader_OverridesDefaults(t *testing.T) {
	// Given a file that overrides a few scoring and output settings
	doc := `
normalize:
  feed_dir: feeds
  categories: [jueces_distrito]
  synonyms:
    folio: [clave, folio]
districts:
  reference: ref/distritos.csv
  column_synonyms:
    entity_name: [estado]
scoring:
  model: anthropic/claude-3-5-sonnet-20241022
  retry_delay: 500ms
  temperature: 0.2
  rate_limit:
    rps: 0.5
    burst: 2
output:
  dir: out
store:
  sqlite_dsn: file:scores.db
metrics:
  addr: 127.0.0.1:9090
`
	// When it is loaded
	cfg, err := loadString(t, doc)

	// Then the file wins and unspecified fields keep their defaults
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-5-sonnet-20241022", cfg.Scoring.Model)
	assert.Equal(t, 500*time.Millisecond, cfg.Scoring.RetryDelay)
	assert.Equal(t, 5, cfg.Scoring.MaxAttempts)
	assert.True(t, cfg.Scoring.JSONMode)
	assert.Equal(t, RateLimitConfig{RPS: 0.5, Burst: 2}, cfg.Scoring.RateLimit)
	assert.Equal(t, filepath.Join("out", "candidates_scored.json"), cfg.Output.Path(cfg.Output.Scores))
	assert.Equal(t, "file:scores.db", cfg.Store.SQLiteDSN)
	assert.Equal(t, "127.0.0.1:9090", cfg.Metrics.Addr)

	assert.Equal(t, map[string]string{"jueces_distrito": filepath.Join("feeds", "raw_jueces_distrito.json")}, cfg.Normalize.FeedPaths())
	assert.Equal(t, map[normalize.Field][]string{normalize.FieldFolio: {"clave", "folio"}}, cfg.Normalize.SynonymOverrides())
	assert.Equal(t, map[district.Role][]string{district.RoleEntityName: {"estado"}}, cfg.Districts.ColumnOverrides())

	sc := cfg.Scoring.ScorerConfig()
	assert.Equal(t, 0.2, sc.Temperature)
	assert.Equal(t, 500*time.Millisecond, sc.RetryDelay)
}

func TestLoadReader_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name:    "template without placeholders",
			doc:     "normalize:\n  profile_url_template: https://example.org/{idCandidato}\n",
			wantMsg: "urltemplate",
		},
		{
			name:    "template without scheme",
			doc:     "normalize:\n  profile_url_template: example.org/{idCandidato}/{idTipoCandidatura}\n",
			wantMsg: "urltemplate",
		},
		{
			name:    "bare model",
			doc:     "scoring:\n  model: gemini\n",
			wantMsg: "modelspec",
		},
		{
			name:    "zero attempts",
			doc:     "scoring:\n  max_attempts: 0\n",
			wantMsg: "MaxAttempts",
		},
		{
			name:    "temperature out of range",
			doc:     "scoring:\n  temperature: 2.5\n",
			wantMsg: "Temperature",
		},
		{
			name:    "negative call budget",
			doc:     "scoring:\n  budget:\n    max_calls: -1\n",
			wantMsg: "MaxCalls",
		},
		{
			name:    "unknown synonym field",
			doc:     "normalize:\n  synonyms:\n    apodo: [alias]\n",
			wantMsg: `unknown field "apodo"`,
		},
		{
			name:    "unknown column role",
			doc:     "districts:\n  column_synonyms:\n    seccion: [sec]\n",
			wantMsg: `unknown role "seccion"`,
		},
		{
			name:    "empty synonym list",
			doc:     "normalize:\n  synonyms:\n    folio: []\n",
			wantMsg: "Synonyms",
		},
		{
			name:    "duplicate categories",
			doc:     "normalize:\n  categories: [a, a]\n",
			wantMsg: "unique",
		},
		{
			name:    "bad metrics address",
			doc:     "metrics:\n  addr: nonsense\n",
			wantMsg: "hostname_port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadString(t, tt.doc)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "config", verr.Entity)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadReader_ReportsEveryProblem(t *testing.T) {
	_, err := loadString(t, "scoring:\n  model: x\n  max_tokens: 0\n")

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
}

func TestLoadReader_RejectsUnknownKeys(t *testing.T) {
	_, err := loadString(t, "scoring:\n  modle: openai/gpt-4.1\n")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "YAML decode failed")
}

func TestLoadReader_EmptyDocument(t *testing.T) {
	cfg, err := loadString(t, "")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "judicatura.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  dir: results\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "results", cfg.Output.Dir)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)
}

func TestConfigLoader_Port(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "judicatura.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  model: google/gemini-2.5-flash\n"), 0o644))

	l, err := NewConfigLoader(path)
	require.NoError(t, err)
	var loader ports.ConfigLoader = l

	var cfg Config
	require.NoError(t, loader.Load(context.Background(), &cfg))
	assert.Equal(t, "google/gemini-2.5-flash", cfg.Scoring.Model)

	var wrong string
	assert.Error(t, loader.Load(context.Background(), &wrong))

	_, err = loader.Watch(context.Background(), &wrong, func(any) {})
	assert.Error(t, err)
}

func TestValidateModelSpec(t *testing.T) {
	tests := []struct {
		spec string
		want bool
	}{
		{spec: "openrouter/google/gemini-2.5-flash-preview", want: true},
		{spec: "anthropic/claude-3-5-sonnet-20241022", want: true},
		{spec: "openai/gpt-4.1-mini", want: true},
		{spec: "openrouter/meta-llama/llama-3.1-70b-instruct:free", want: true},
		{spec: "openai", want: false},
		{spec: "openai/", want: false},
		{spec: "OpenAI/gpt-4", want: false},
		{spec: "openrouter//x", want: false},
		{spec: "openai/gpt 4", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, modelSpecPattern.MatchString(tt.spec))
		})
	}
}
