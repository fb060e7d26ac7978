package district

import (
	"context"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/ports"
)

// Raw record keys carrying district hints.
const (
	RawKeyCircuitID  = "idCircuito"
	RawKeyDistrictID = "idDistritoJudicial"
	RawKeyStateName  = "nombreEstado"
)

// Hints are the district identifiers and state name found on a raw record.
type Hints struct {
	CircuitID  domain.Scalar
	DistrictID domain.Scalar
	StateName  string
}

// HasPair reports whether both identifiers are present and non-null.
func (h Hints) HasPair() bool { return h.CircuitID != nil && h.DistrictID != nil }

// HintsFrom extracts Hints from a raw record. A nil record has no hints.
func HintsFrom(raw domain.RawRecord) Hints {
	if raw == nil {
		return Hints{}
	}
	h := Hints{
		CircuitID:  scalarHint(raw[RawKeyCircuitID]),
		DistrictID: scalarHint(raw[RawKeyDistrictID]),
	}
	if s, ok := raw[RawKeyStateName].(string); ok {
		h.StateName = s
	}
	return h
}

// scalarHint drops values that cannot serve as identifiers, such as
// nested objects or lists.
func scalarHint(v any) domain.Scalar {
	v = domain.NormalizeScalar(v)
	if !domain.IsScalar(v) {
		return nil
	}
	return v
}

// Summary counts association outcomes for one batch.
type Summary struct {
	Total     int `json:"total"`
	Exact     int `json:"exact"`
	State     int `json:"state"`
	Unmatched int `json:"unmatched"`
}

// Matched returns the number of candidates matched by either tier.
func (s Summary) Matched() int { return s.Exact + s.State }

// Matcher associates candidates with districts from a Reference.
type Matcher struct {
	ref     *Reference
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithLogger sets the matcher logger.
func WithLogger(l *zap.Logger) MatcherOption {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTracer overrides the tracer used for match spans.
func WithTracer(t trace.Tracer) MatcherOption {
	return func(m *Matcher) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithMetrics records per-tier counters.
func WithMetrics(c ports.MetricsCollector) MatcherOption {
	return func(m *Matcher) { m.metrics = c }
}

// NewMatcher creates a Matcher over ref.
func NewMatcher(ref *Reference, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		ref:    ref,
		logger: zap.NewNop(),
		tracer: otel.Tracer("district-matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match associates one candidate using the hints of its raw record.
// Tier 1 looks up the exact (circuit, district) pair without type
// coercion. Tier 2 runs only when tier 1 found nothing and compares the
// state name against entity names case-insensitively. The first reference
// row wins in both tiers. Unmatched candidates keep a null Association.
func (m *Matcher) Match(ctx context.Context, c domain.Candidate, raw domain.RawRecord) domain.AssociatedCandidate {
	_, span := m.tracer.Start(ctx, "Matcher.Match",
		trace.WithAttributes(attribute.String("candidate.folio", c.FolioOrEmpty())),
	)
	defer span.End()

	hints := HintsFrom(raw)
	out := domain.AssociatedCandidate{Candidate: c}

	if hints.HasPair() {
		if d, ok := m.ref.ByPair(hints.CircuitID, hints.DistrictID); ok {
			out.Association = d.Association(domain.TierExact)
		}
	}

	if !out.Matched() && hints.StateName != "" {
		if d, ok := m.ref.ByEntity(hints.StateName); ok {
			out.Association = d.Association(domain.TierState)
		}
	}

	span.SetAttributes(attribute.String("match.tier", out.Tier.String()))
	if !out.Matched() {
		m.logUnmatched(c, hints)
	}
	if m.metrics != nil {
		m.metrics.RecordCounter("association_candidates_total", 1, map[string]string{"tier": out.Tier.String()})
	}
	return out
}

// MatchAll associates candidates in order. rawFor returns the raw record
// for a candidate, or nil when none is known.
func (m *Matcher) MatchAll(
	ctx context.Context,
	candidates []domain.Candidate,
	rawFor func(domain.Candidate) domain.RawRecord,
) ([]domain.AssociatedCandidate, Summary) {
	out := make([]domain.AssociatedCandidate, 0, len(candidates))
	var sum Summary
	for _, c := range candidates {
		var raw domain.RawRecord
		if rawFor != nil {
			raw = rawFor(c)
		}
		ac := m.Match(ctx, c, raw)
		switch ac.Tier {
		case domain.TierExact:
			sum.Exact++
		case domain.TierState:
			sum.State++
		default:
			sum.Unmatched++
		}
		out = append(out, ac)
	}
	sum.Total = len(candidates)

	m.logger.Info("district association complete",
		zap.Int("matched", sum.Matched()),
		zap.Int("total", sum.Total),
		zap.Int("exact", sum.Exact),
		zap.Int("state", sum.State),
	)
	return out, sum
}

// Nearest returns the reference entity name closest to name by edit
// distance, for diagnostics only. It never produces a match.
func (m *Matcher) Nearest(name string) (string, int) {
	folded := FoldName(name)
	best, bestDist := "", -1
	for _, e := range m.ref.entities {
		d := levenshtein.ComputeDistance(folded, e)
		if bestDist < 0 || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}

func (m *Matcher) logUnmatched(c domain.Candidate, h Hints) {
	if ce := m.logger.Check(zap.DebugLevel, "no district match"); ce != nil {
		fields := []zap.Field{
			zap.String("folio", c.FolioOrEmpty()),
			zap.Bool("has_pair", h.HasPair()),
			zap.Error(domain.ErrMatchNotFound),
		}
		if h.StateName != "" {
			nearest, dist := m.Nearest(h.StateName)
			fields = append(fields,
				zap.String("state", h.StateName),
				zap.String("nearest_entity", nearest),
				zap.Int("distance", dist),
			)
		}
		ce.Write(fields...)
	}
}
