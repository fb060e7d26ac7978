// Package application wires the pipeline stages together from a single
// YAML configuration.
package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-judicatura/internal/district"
	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/lookup"
	"github.com/ahrav/go-judicatura/internal/normalize"
	"github.com/ahrav/go-judicatura/internal/ports"
	"github.com/ahrav/go-judicatura/internal/scoring"
)

// DefaultModel is the OpenRouter model used for scoring.
const DefaultModel = "openrouter/google/gemini-2.5-flash-preview"

// Config is the complete pipeline configuration.
type Config struct {
	Normalize NormalizeConfig `yaml:"normalize"`
	Districts DistrictsConfig `yaml:"districts"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Output    OutputConfig    `yaml:"output"`
	Store     StoreConfig     `yaml:"store"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// NormalizeConfig controls feed reading and record normalization.
type NormalizeConfig struct {
	// ProfileURLTemplate must contain {idCandidato} and {idTipoCandidatura}.
	ProfileURLTemplate string `yaml:"profile_url_template" validate:"required,urltemplate"`
	// FeedDir holds one raw_<category>.json file per feed.
	FeedDir string `yaml:"feed_dir" validate:"required"`
	// Categories lists the feed tags to read.
	Categories []string `yaml:"categories" validate:"required,min=1,unique,dive,required"`
	// Synonyms overrides the source keys per canonical field.
	Synonyms map[string][]string `yaml:"synonyms" validate:"dive,min=1,dive,required"`
}

// DistrictsConfig locates the district reference data.
type DistrictsConfig struct {
	Reference string `yaml:"reference" validate:"required"`
	// GeoJSON is optional. When set, the lookup stage writes an enriched copy.
	GeoJSON string `yaml:"geojson"`
	// ColumnSynonyms overrides the accepted column names per role.
	ColumnSynonyms map[string][]string `yaml:"column_synonyms" validate:"dive,min=1,dive,required"`
	SummaryLimit   int                 `yaml:"summary_limit" validate:"min=1,max=100"`
}

// ScoringConfig controls the evaluation scorer and batch runner.
type ScoringConfig struct {
	// Model is a "provider/model" spec resolved by the LLM registry.
	Model             string          `yaml:"model" validate:"required,modelspec"`
	MaxAttempts       int             `yaml:"max_attempts" validate:"min=1,max=20"`
	RetryDelay        time.Duration   `yaml:"retry_delay" validate:"min=0"`
	InterRequestDelay time.Duration   `yaml:"inter_request_delay" validate:"min=0"`
	Temperature       float64         `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens         int             `yaml:"max_tokens" validate:"min=1,max=32768"`
	JSONMode          bool            `yaml:"json_mode"`
	CVDir             string          `yaml:"cv_dir"`
	CVMaxChars        int             `yaml:"cv_max_chars" validate:"min=1"`
	RequestTimeout    time.Duration   `yaml:"request_timeout" validate:"min=0"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	Budget            BudgetConfig    `yaml:"budget"`
}

// BudgetConfig caps the provider usage of one scoring run. Zero is unlimited.
type BudgetConfig struct {
	MaxTokens int64 `yaml:"max_tokens" validate:"min=0"`
	MaxCalls  int64 `yaml:"max_calls" validate:"min=0"`
}

// RateLimitConfig paces provider requests. RPS 0 disables pacing.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"min=0"`
	Burst int     `yaml:"burst" validate:"min=1"`
}

// OutputConfig names the files each stage writes, relative to Dir.
type OutputConfig struct {
	Dir            string `yaml:"dir" validate:"required"`
	RawRecords     string `yaml:"raw_records" validate:"required"`
	Candidates     string `yaml:"candidates" validate:"required"`
	CandidatesCSV  string `yaml:"candidates_csv" validate:"required"`
	Associated     string `yaml:"associated" validate:"required"`
	AssociatedCSV  string `yaml:"associated_csv" validate:"required"`
	Lookup         string `yaml:"lookup" validate:"required"`
	DistrictsGeo   string `yaml:"districts_geojson" validate:"required"`
	Scores         string `yaml:"scores" validate:"required"`
	ScoresCSV      string `yaml:"scores_csv" validate:"required"`
	StatusLog      string `yaml:"status_log" validate:"required"`
	JoinedScoreCSV string `yaml:"joined_scores_csv" validate:"required"`
}

// Path joins name onto the output directory.
func (o OutputConfig) Path(name string) string {
	return filepath.Join(o.Dir, name)
}

// StoreConfig enables the optional SQLite mirror of scored entries.
type StoreConfig struct {
	SQLiteDSN string `yaml:"sqlite_dsn"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	scoringDefaults := scoring.DefaultConfig()
	return Config{
		Normalize: NormalizeConfig{
			ProfileURLTemplate: normalize.DefaultProfileURLTemplate,
			FeedDir:            "data",
			Categories:         append([]string(nil), normalize.DefaultCategories...),
		},
		Districts: DistrictsConfig{
			Reference:    "data/distritos_judiciales.csv",
			SummaryLimit: lookup.DefaultSummaryLimit,
		},
		Scoring: ScoringConfig{
			Model:             DefaultModel,
			MaxAttempts:       scoringDefaults.MaxAttempts,
			RetryDelay:        scoringDefaults.RetryDelay,
			InterRequestDelay: scoring.DefaultInterRequestDelay,
			MaxTokens:         scoringDefaults.MaxTokens,
			JSONMode:          scoringDefaults.JSONMode,
			CVMaxChars:        scoring.DefaultCVMaxChars,
			RequestTimeout:    90 * time.Second,
			RateLimit:         RateLimitConfig{RPS: 1, Burst: 1},
		},
		Output: OutputConfig{
			Dir:            "output",
			RawRecords:     "all_candidates.json",
			Candidates:     "normalized_candidates.json",
			CandidatesCSV:  "candidates.csv",
			Associated:     "candidatos_con_distritos.json",
			AssociatedCSV:  "candidatos_con_distritos.csv",
			Lookup:         "lookup_distritos_candidatos.csv",
			DistrictsGeo:   "distritos_con_candidatos.geojson",
			Scores:         "candidates_scored.json",
			ScoresCSV:      "candidates_scored.csv",
			StatusLog:      "candidates_scored_status.jsonl",
			JoinedScoreCSV: "candidates_scored_full.csv",
		},
	}
}

// FeedPaths maps each configured category to raw_<category>.json in FeedDir.
func (c NormalizeConfig) FeedPaths() map[string]string {
	out := make(map[string]string, len(c.Categories))
	for _, cat := range c.Categories {
		out[cat] = filepath.Join(c.FeedDir, "raw_"+cat+".json")
	}
	return out
}

// SynonymOverrides converts the configured overrides to normalizer fields.
func (c NormalizeConfig) SynonymOverrides() map[normalize.Field][]string {
	out := make(map[normalize.Field][]string, len(c.Synonyms))
	for k, v := range c.Synonyms {
		out[normalize.Field(k)] = v
	}
	return out
}

// ColumnOverrides converts the configured overrides to reference roles.
func (c DistrictsConfig) ColumnOverrides() map[district.Role][]string {
	out := make(map[district.Role][]string, len(c.ColumnSynonyms))
	for k, v := range c.ColumnSynonyms {
		out[district.Role(k)] = v
	}
	return out
}

// ScorerConfig returns the request options and retry policy for the scorer.
func (c ScoringConfig) ScorerConfig() scoring.Config {
	return scoring.Config{
		MaxAttempts: c.MaxAttempts,
		RetryDelay:  c.RetryDelay,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		JSONMode:    c.JSONMode,
	}
}

// ConfigLoader reads and validates configuration files. It implements
// ports.ConfigLoader.
type ConfigLoader struct {
	path      string
	validator *validator.Validate
	logger    *zap.Logger
}

var _ ports.ConfigLoader = (*ConfigLoader)(nil)

// ConfigLoaderOption configures a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigLogger sets the logger used while watching.
func WithConfigLogger(l *zap.Logger) ConfigLoaderOption {
	return func(c *ConfigLoader) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConfigLoader returns a loader for path. An empty path yields the
// defaults.
func NewConfigLoader(path string, opts ...ConfigLoaderOption) (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		return nil, err
	}
	l := &ConfigLoader{path: path, validator: v, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LoadConfig reads path over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	l, err := NewConfigLoader(path)
	if err != nil {
		return Config{}, err
	}
	return l.LoadFile()
}

// LoadFile reads the loader's file over DefaultConfig and validates it.
func (l *ConfigLoader) LoadFile() (Config, error) {
	cfg := DefaultConfig()
	if l.path == "" {
		return cfg, l.Validate(&cfg)
	}
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, ports.NewConfigError(l.path, ports.ErrConfigNotFound)
	}
	if err != nil {
		return Config{}, ports.NewConfigError(l.path, err)
	}
	defer f.Close()

	if err := l.decode(f, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, l.Validate(&cfg)
}

// LoadReader decodes r over DefaultConfig and validates the result.
func (l *ConfigLoader) LoadReader(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := l.decode(r, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, l.Validate(&cfg)
}

// decode uses strict decoding so misspelled keys are reported instead of
// silently ignored. An empty document keeps the defaults.
func (l *ConfigLoader) decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return ports.NewConfigError(l.path, fmt.Errorf("failed to read config: %w", err))
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return ports.NewConfigError(l.path, fmt.Errorf("YAML decode failed: %w", err))
	}
	return nil
}

// Load implements ports.ConfigLoader for *Config targets.
func (l *ConfigLoader) Load(_ context.Context, config any) error {
	target, ok := config.(*Config)
	if !ok {
		return fmt.Errorf("unsupported config type %T", config)
	}
	cfg, err := l.LoadFile()
	if err != nil {
		return err
	}
	*target = cfg
	return nil
}

// Validate runs struct-tag validation and the cross-field rules that tags
// cannot express. All problems are reported in one ValidationError.
func (l *ConfigLoader) Validate(cfg *Config) error {
	verr := domain.NewValidationError("config")

	if err := l.validator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("struct validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.AddError(fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	known := normalize.DefaultSynonyms()
	for _, k := range sortedKeys(cfg.Normalize.Synonyms) {
		if _, ok := known[normalize.Field(k)]; !ok {
			verr.AddError(fmt.Sprintf("normalize.synonyms: unknown field %q", k))
		}
	}
	roles := district.DefaultColumnSynonyms()
	for _, k := range sortedKeys(cfg.Districts.ColumnSynonyms) {
		if _, ok := roles[district.Role(k)]; !ok {
			verr.AddError(fmt.Sprintf("districts.column_synonyms: unknown role %q", k))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
