package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/ports"
)

// Default retry policy.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 2 * time.Second
	DefaultMaxTokens   = 2048
)

// Attempt outcomes used as metric labels.
const (
	outcomeOK        = "ok"
	outcomeMalformed = "malformed"
	outcomeTransport = "transport"
)

// Config controls the request options and retry policy of a Scorer.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Temperature float64
	MaxTokens   int
	// JSONMode asks the provider for a JSON object response.
	JSONMode bool
}

// DefaultConfig returns the standard retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		MaxTokens:   DefaultMaxTokens,
		JSONMode:    true,
	}
}

// Scorer produces a ScoreResult per profile. Each attempt makes exactly one
// call to the judgment service. Malformed output and transport failures
// consume the same attempt budget. Once the budget is spent the last result
// is returned as invalid instead of failing.
type Scorer struct {
	client    ports.LLMClient
	validator *SchemaValidator
	cfg       Config
	logger    *zap.Logger
	tracer    trace.Tracer
	metrics   ports.MetricsCollector
	sleep     func(context.Context, time.Duration) error
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithConfig replaces the request options and retry policy.
func WithConfig(cfg Config) ScorerOption {
	return func(s *Scorer) { s.cfg = cfg }
}

// WithLogger sets the scorer logger.
func WithLogger(l *zap.Logger) ScorerOption {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer overrides the tracer used for scoring spans.
func WithTracer(t trace.Tracer) ScorerOption {
	return func(s *Scorer) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics records per-attempt outcome counters.
func WithMetrics(c ports.MetricsCollector) ScorerOption {
	return func(s *Scorer) { s.metrics = c }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(fn func(context.Context, time.Duration) error) ScorerOption {
	return func(s *Scorer) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// NewScorer creates a Scorer backed by client.
func NewScorer(client ports.LLMClient, opts ...ScorerOption) (*Scorer, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	v, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	s := &Scorer{
		client:    client,
		validator: v,
		cfg:       DefaultConfig(),
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("candidate-scorer"),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", s.cfg.MaxAttempts)
	}
	if s.cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay cannot be negative, got %s", s.cfg.RetryDelay)
	}
	return s, nil
}

// Score evaluates one profile. The returned result is Valid with a Score,
// or invalid with the last raw response, its best-effort parse and the
// last error. Context cancellation stops the loop early and is reported
// in Err.
func (s *Scorer) Score(ctx context.Context, p Profile) domain.ScoreResult {
	ctx, span := s.tracer.Start(ctx, "Scorer.Score",
		trace.WithAttributes(
			attribute.String("candidate.folio", p.Folio),
			attribute.String("llm.model", s.client.GetModel()),
		),
	)
	defer span.End()

	var res domain.ScoreResult
	prompt, err := BuildPrompt(p)
	if err != nil {
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt rendering failed")
		return res
	}

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt

		raw, err := s.client.Complete(ctx, prompt, s.requestOptions())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Err = ctxErr
				break
			}
			if errors.Is(err, domain.ErrBudgetExceeded) {
				res.Err = err
				break
			}
			res.Err = &domain.TransportError{Attempt: attempt, Err: err}
			s.recordAttempt(outcomeTransport)
			s.logAttemptFailure(p.Folio, attempt, res.Err)
		} else {
			res.Raw = raw
			res.Parsed = nil
			score, err := s.evaluate(raw, &res)
			if err == nil {
				res.Valid = true
				res.Score = score
				res.Err = nil
				s.recordAttempt(outcomeOK)
				break
			}
			res.Err = err
			s.recordAttempt(outcomeMalformed)
			s.logAttemptFailure(p.Folio, attempt, err)
		}

		if attempt == s.cfg.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, s.cfg.RetryDelay); err != nil {
			res.Err = err
			break
		}
	}

	span.SetAttributes(
		attribute.Int("scoring.attempts", res.Attempts),
		attribute.String("scoring.status", string(res.Status())),
	)
	if !res.Valid && res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "no valid score")
	}
	return res
}

// evaluate parses and validates one response, storing the parse on res.
func (s *Scorer) evaluate(raw string, res *domain.ScoreResult) (*domain.Score, error) {
	obj, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	res.Parsed = obj
	return s.validator.Validate(obj)
}

func (s *Scorer) requestOptions() map[string]any {
	opts := map[string]any{
		"temperature": s.cfg.Temperature,
	}
	if s.cfg.MaxTokens > 0 {
		opts["max_tokens"] = s.cfg.MaxTokens
	}
	if s.cfg.JSONMode {
		opts["response_format"] = "json_object"
	}
	return opts
}

func (s *Scorer) recordAttempt(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCounter("scoring_attempts_total", 1, map[string]string{"outcome": outcome})
	}
}

func (s *Scorer) logAttemptFailure(folio string, attempt int, err error) {
	reason := outcomeMalformed
	if errors.Is(err, domain.ErrTransportFailure) {
		reason = outcomeTransport
	}
	s.logger.Warn("scoring attempt failed",
		zap.String("folio", folio),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", s.cfg.MaxAttempts),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
