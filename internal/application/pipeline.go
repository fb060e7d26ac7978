package application

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahrav/go-judicatura/internal/district"
	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/export"
	"github.com/ahrav/go-judicatura/internal/lookup"
	"github.com/ahrav/go-judicatura/internal/matching"
	"github.com/ahrav/go-judicatura/internal/normalize"
	"github.com/ahrav/go-judicatura/internal/ports"
	"github.com/ahrav/go-judicatura/internal/scoring"
	"github.com/ahrav/go-judicatura/internal/source"
	"github.com/ahrav/go-judicatura/internal/store"
)

// Pipeline runs the stages against the files named in a Config. Each
// stage reads what the previous one wrote, so stages can be rerun alone.
type Pipeline struct {
	cfg     Config
	logger  *zap.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer
	sleep   func(context.Context, time.Duration) error
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger passed to every stage.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the collector passed to every stage.
func WithMetrics(c ports.MetricsCollector) PipelineOption {
	return func(p *Pipeline) { p.metrics = c }
}

// WithTracer sets the tracer passed to the matcher and scorer.
func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithSleeper replaces the waits of the scoring stage.
func WithSleeper(fn func(context.Context, time.Duration) error) PipelineOption {
	return func(p *Pipeline) { p.sleep = fn }
}

// NewPipeline creates a Pipeline for cfg.
func NewPipeline(cfg Config, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: zap.NewNop(),
		tracer: otel.Tracer("judicatura"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

func (p *Pipeline) out(name string) string { return p.cfg.Output.Path(name) }

// NormalizeResult reports the normalize stage.
type NormalizeResult struct {
	Feeds    int `json:"feeds"`
	Records  int `json:"records"`
	Kept     int `json:"kept"`
	Rejected int `json:"rejected"`
}

// Normalize reads every category feed, normalizes the records and writes
// the combined raw records, the candidate JSON and the candidate CSV.
func (p *Pipeline) Normalize(ctx context.Context) (NormalizeResult, error) {
	feeds, err := source.LoadFeeds(ctx, p.cfg.Normalize.FeedPaths(), p.logger)
	if err != nil {
		return NormalizeResult{}, err
	}

	n := normalize.New(
		normalize.WithSynonyms(p.cfg.Normalize.SynonymOverrides()),
		normalize.WithProfileURLTemplate(p.cfg.Normalize.ProfileURLTemplate),
		normalize.WithLogger(p.logger),
	)

	var (
		res   = NormalizeResult{Feeds: len(feeds)}
		raw   []domain.RawRecord
		cands []domain.Candidate
	)
	for _, f := range feeds {
		kept, rep := n.NormalizeAll(f.Records, f.Category)
		raw = append(raw, f.Records...)
		cands = append(cands, kept...)
		res.Records += len(f.Records)
		res.Kept += rep.Kept
		res.Rejected += rep.Rejected
	}

	if raw == nil {
		raw = []domain.RawRecord{}
	}
	if cands == nil {
		cands = []domain.Candidate{}
	}
	if err := export.WriteJSON(p.out(p.cfg.Output.RawRecords), raw); err != nil {
		return res, err
	}
	if err := export.WriteJSON(p.out(p.cfg.Output.Candidates), cands); err != nil {
		return res, err
	}
	if err := export.WriteCandidatesCSV(p.out(p.cfg.Output.CandidatesCSV), cands); err != nil {
		return res, err
	}

	p.logger.Info("normalize complete",
		zap.Int("feeds", res.Feeds),
		zap.Int("kept", res.Kept),
		zap.Int("rejected", res.Rejected),
	)
	return res, nil
}

// loadInputs reads the normalized candidates and the raw record index.
func (p *Pipeline) loadInputs() ([]domain.Candidate, map[string]domain.RawRecord, error) {
	cands, err := source.LoadCandidates(p.out(p.cfg.Output.Candidates))
	if err != nil {
		return nil, nil, err
	}
	raw, err := source.LoadRawRecords(p.out(p.cfg.Output.RawRecords))
	if err != nil {
		return nil, nil, err
	}
	return cands, normalize.IndexRaw(raw), nil
}

// rawFor finds a candidate's raw record by internal id, then by folio.
func rawFor(index map[string]domain.RawRecord) func(domain.Candidate) domain.RawRecord {
	return func(c domain.Candidate) domain.RawRecord {
		if c.InternalID != nil {
			if r, ok := index[*c.InternalID]; ok {
				return r
			}
		}
		return index[c.FolioOrEmpty()]
	}
}

func (p *Pipeline) columnSynonyms() district.ColumnSynonyms {
	return district.DefaultColumnSynonyms().Merge(p.cfg.Districts.ColumnOverrides())
}

// Associate matches every normalized candidate to a district and writes
// the annotated candidates as JSON and CSV.
func (p *Pipeline) Associate(ctx context.Context) (district.Summary, error) {
	cands, index, err := p.loadInputs()
	if err != nil {
		return district.Summary{}, err
	}
	ref, err := source.LoadReference(p.cfg.Districts.Reference, p.columnSynonyms())
	if err != nil {
		return district.Summary{}, err
	}

	m := district.NewMatcher(ref,
		district.WithLogger(p.logger),
		district.WithTracer(p.tracer),
		district.WithMetrics(p.metrics),
	)
	assoc, sum := m.MatchAll(ctx, cands, rawFor(index))

	if err := export.WriteJSON(p.out(p.cfg.Output.Associated), assoc); err != nil {
		return sum, err
	}
	if err := export.WriteAssociatedCSV(p.out(p.cfg.Output.AssociatedCSV), assoc); err != nil {
		return sum, err
	}
	return sum, nil
}

// LookupResult reports the lookup stage.
type LookupResult struct {
	Rows int                `json:"rows"`
	Geo  *lookup.GeoSummary `json:"geo,omitempty"`
}

// Lookup aggregates associated candidates per district and writes the
// lookup CSV. With a GeoJSON source configured it also writes the
// enriched feature collection.
func (p *Pipeline) Lookup(ctx context.Context) (LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return LookupResult{}, err
	}
	assoc, err := source.ReadJSON[[]domain.AssociatedCandidate](p.out(p.cfg.Output.Associated))
	if err != nil {
		return LookupResult{}, err
	}

	rows := lookup.NewAggregator(lookup.WithSummaryLimit(p.cfg.Districts.SummaryLimit)).Aggregate(assoc)
	if err := export.WriteLookupCSV(p.out(p.cfg.Output.Lookup), rows); err != nil {
		return LookupResult{}, err
	}
	res := LookupResult{Rows: len(rows)}

	if p.cfg.Districts.GeoJSON != "" {
		fc, err := source.LoadFeatures(p.cfg.Districts.GeoJSON)
		if err != nil {
			return res, err
		}
		geo, err := lookup.Enrich(fc, assoc, p.columnSynonyms())
		if err != nil {
			return res, err
		}
		if err := export.WriteGeoJSON(p.out(p.cfg.Output.DistrictsGeo), fc); err != nil {
			return res, err
		}
		res.Geo = &geo
	}

	p.logger.Info("lookup complete", zap.Int("districts", res.Rows))
	return res, nil
}

// Score runs the batch scorer over every normalized candidate, resuming
// from the scored JSON checkpoint. The SQLite mirror is used when a DSN
// is configured.
func (p *Pipeline) Score(ctx context.Context, client ports.LLMClient) (scoring.RunSummary, error) {
	cands, index, err := p.loadInputs()
	if err != nil {
		return scoring.RunSummary{}, err
	}
	items := make([]scoring.Item, 0, len(cands))
	lookupRaw := rawFor(index)
	for _, c := range cands {
		items = append(items, scoring.Item{Candidate: c, Raw: lookupRaw(c)})
	}

	scorerOpts := []scoring.ScorerOption{
		scoring.WithConfig(p.cfg.Scoring.ScorerConfig()),
		scoring.WithLogger(p.logger),
		scoring.WithTracer(p.tracer),
		scoring.WithMetrics(p.metrics),
	}
	if p.sleep != nil {
		scorerOpts = append(scorerOpts, scoring.WithSleeper(p.sleep))
	}
	scorer, err := scoring.NewScorer(client, scorerOpts...)
	if err != nil {
		return scoring.RunSummary{}, err
	}

	if err := os.MkdirAll(p.cfg.Output.Dir, 0o755); err != nil {
		return scoring.RunSummary{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	statusLog, err := store.OpenStatusLog(p.out(p.cfg.Output.StatusLog))
	if err != nil {
		return scoring.RunSummary{}, err
	}
	defer statusLog.Close()

	runnerOpts := []scoring.RunnerOption{
		scoring.WithSnapshot(export.ScoreCSV{Path: p.out(p.cfg.Output.ScoresCSV)}),
		scoring.WithStatusLog(statusLog),
		scoring.WithCVSource(scoring.DirCVSource{Dir: p.cfg.Scoring.CVDir}, p.cfg.Scoring.CVMaxChars),
		scoring.WithInterRequestDelay(p.cfg.Scoring.InterRequestDelay),
		scoring.WithRunnerLogger(p.logger),
		scoring.WithRunnerMetrics(p.metrics),
		scoring.WithRunnerSleeper(p.sleep),
	}
	if dsn := p.cfg.Store.SQLiteDSN; dsn != "" {
		db, err := store.OpenSQLiteScoreStore(ctx, dsn)
		if err != nil {
			return scoring.RunSummary{}, err
		}
		defer db.Close()
		runnerOpts = append(runnerOpts, scoring.WithScoreStore(db))
	}

	runner, err := scoring.NewRunner(scorer, store.NewJSONCheckpoint(p.out(p.cfg.Output.Scores)), runnerOpts...)
	if err != nil {
		return scoring.RunSummary{}, err
	}
	return runner.Run(ctx, items)
}

// Join writes the scored entries enriched with raw and normalized fields.
// It returns the number of rows written.
func (p *Pipeline) Join(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	entries, err := source.LoadScoredEntries(p.out(p.cfg.Output.Scores))
	if err != nil {
		return 0, err
	}
	cands, index, err := p.loadInputs()
	if err != nil {
		return 0, err
	}
	rows := export.JoinScores(entries, index, cands)
	if err := export.WriteJoinedCSV(p.out(p.cfg.Output.JoinedScoreCSV), rows); err != nil {
		return 0, err
	}
	p.logger.Info("join complete", zap.Int("rows", len(rows)))
	return len(rows), nil
}

// MatchResult is a voter profile with its closest candidates.
type MatchResult struct {
	Profile matching.UserProfile `json:"profile"`
	Matches []matching.Match     `json:"matches"`
}

// Match ranks the scored candidates against a voter's questionnaire answers.
func (p *Pipeline) Match(questionsPath, answersPath string, limit int) (MatchResult, error) {
	questions, answers, err := source.LoadQuestionnaire(questionsPath, answersPath)
	if err != nil {
		return MatchResult{}, err
	}
	entries, err := source.LoadScoredEntries(p.out(p.cfg.Output.Scores))
	if err != nil {
		return MatchResult{}, err
	}
	profile := matching.UserVector(answers, questions)
	matches := matching.Rank(profile.Vector, entries, limit)
	if matches == nil {
		matches = []matching.Match{}
	}
	return MatchResult{Profile: profile, Matches: matches}, nil
}
