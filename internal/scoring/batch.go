package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/ports"
)

// DefaultInterRequestDelay is the pause after every scored candidate.
const DefaultInterRequestDelay = 1500 * time.Millisecond

// Item is one candidate queued for scoring with its raw source record.
type Item struct {
	Candidate domain.Candidate
	Raw       domain.RawRecord
}

// Checkpoint holds the scored collection between runs.
type Checkpoint interface {
	// Load returns the previously persisted entries, or none.
	Load() ([]domain.ScoredEntry, error)
	SnapshotWriter
}

// SnapshotWriter rewrites a full view of the scored collection.
type SnapshotWriter interface {
	WriteSnapshot(entries []domain.ScoredEntry) error
}

// StatusLog appends one status record per scored candidate.
type StatusLog interface {
	Append(rec domain.StatusRecord) error
}

// RunSummary reports the outcome of one batch run.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Skipped   int    `json:"skipped"`
	Scored    int    `json:"scored"`
	OK        int    `json:"ok"`
	Malformed int    `json:"malformed"`
}

// Runner scores candidates one at a time and persists every outcome
// before moving on, so an interrupted run can resume by skipping folios
// already present in the checkpoint.
type Runner struct {
	scorer     *Scorer
	checkpoint Checkpoint
	snapshots  []SnapshotWriter
	status     StatusLog
	store      ports.ScoreStore
	cvs        CVSource
	cvMaxChars int
	delay      time.Duration
	logger     *zap.Logger
	metrics    ports.MetricsCollector
	sleep      func(context.Context, time.Duration) error
	newRunID   func() string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSnapshot adds a view rewritten after every candidate, such as the
// flattened CSV export.
func WithSnapshot(w SnapshotWriter) RunnerOption {
	return func(r *Runner) { r.snapshots = append(r.snapshots, w) }
}

// WithStatusLog sets the append-only status log.
func WithStatusLog(l StatusLog) RunnerOption {
	return func(r *Runner) { r.status = l }
}

// WithScoreStore mirrors every entry into a ScoreStore.
func WithScoreStore(s ports.ScoreStore) RunnerOption {
	return func(r *Runner) { r.store = s }
}

// WithCVSource sets where profile documents are read from.
func WithCVSource(src CVSource, maxChars int) RunnerOption {
	return func(r *Runner) {
		r.cvs = src
		r.cvMaxChars = maxChars
	}
}

// WithInterRequestDelay sets the pause after every scored candidate.
func WithInterRequestDelay(d time.Duration) RunnerOption {
	return func(r *Runner) { r.delay = d }
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRunnerMetrics records per-candidate status counters.
func WithRunnerMetrics(c ports.MetricsCollector) RunnerOption {
	return func(r *Runner) { r.metrics = c }
}

// WithRunnerSleeper replaces the inter-request wait.
func WithRunnerSleeper(fn func(context.Context, time.Duration) error) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) { r.newRunID = func() string { return id } }
}

// NewRunner creates a Runner. The checkpoint is required.
func NewRunner(scorer *Scorer, checkpoint Checkpoint, opts ...RunnerOption) (*Runner, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if checkpoint == nil {
		return nil, fmt.Errorf("checkpoint cannot be nil")
	}
	r := &Runner{
		scorer:     scorer,
		checkpoint: checkpoint,
		cvMaxChars: DefaultCVMaxChars,
		delay:      DefaultInterRequestDelay,
		logger:     zap.NewNop(),
		sleep:      sleepContext,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run scores every item not already checkpointed. Per-candidate failures
// never stop the run; persistence failures, an exhausted budget and
// cancellation do. Entries
// checkpointed before an interruption remain valid.
func (r *Runner) Run(ctx context.Context, items []Item) (RunSummary, error) {
	sum := RunSummary{RunID: r.newRunID(), Total: len(items)}

	entries, err := r.checkpoint.Load()
	if err != nil {
		return sum, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	done, err := r.scoredFolios(ctx, entries)
	if err != nil {
		return sum, err
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		folio := item.Candidate.FolioOrEmpty()
		if _, ok := done[folio]; ok && folio != "" {
			sum.Skipped++
			continue
		}

		res := r.scoreOne(ctx, item)
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if errors.Is(res.Err, domain.ErrBudgetExceeded) {
			r.logger.Warn("scoring budget exhausted", zap.String("folio", folio), zap.Int("scored", sum.Scored))
			return sum, res.Err
		}

		entry := domain.ScoredEntry{
			Folio:   folio,
			Name:    item.Candidate.DisplayName(),
			Scoring: res.Scoring(),
		}
		entries = append(entries, entry)
		if err := r.persist(ctx, sum.RunID, entries, entry, res); err != nil {
			return sum, err
		}
		done[folio] = struct{}{}

		sum.Scored++
		if res.Valid {
			sum.OK++
		} else {
			sum.Malformed++
		}
		if r.metrics != nil {
			r.metrics.RecordCounter("scoring_candidates_total", 1, map[string]string{"status": string(res.Status())})
		}
		r.logger.Info("candidate scored",
			zap.Int("index", i+1),
			zap.Int("total", len(items)),
			zap.String("folio", folio),
			zap.String("status", string(res.Status())),
			zap.Int("attempts", res.Attempts),
		)

		if err := r.sleep(ctx, r.delay); err != nil {
			return sum, err
		}
	}

	r.logger.Info("scoring run complete",
		zap.String("run_id", sum.RunID),
		zap.Int("total", sum.Total),
		zap.Int("skipped", sum.Skipped),
		zap.Int("ok", sum.OK),
		zap.Int("malformed", sum.Malformed),
	)
	return sum, nil
}

func (r *Runner) scoredFolios(ctx context.Context, entries []domain.ScoredEntry) (map[string]struct{}, error) {
	done := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		done[e.Folio] = struct{}{}
	}
	if r.store == nil {
		return done, nil
	}
	stored, err := r.store.ScoredFolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read scored folios: %w", err)
	}
	for f := range stored {
		done[f] = struct{}{}
	}
	return done, nil
}

func (r *Runner) scoreOne(ctx context.Context, item Item) domain.ScoreResult {
	var cv string
	if r.cvs != nil {
		text, err := r.cvs.CV(item.Candidate.FolioOrEmpty())
		if err != nil {
			r.logger.Warn("failed to read CV", zap.String("folio", item.Candidate.FolioOrEmpty()), zap.Error(err))
		}
		cv = text
	}
	profile := NewProfile(item.Candidate, item.Raw, cv, r.cvMaxChars)
	return r.scorer.Score(ctx, profile)
}

func (r *Runner) persist(
	ctx context.Context,
	runID string,
	entries []domain.ScoredEntry,
	entry domain.ScoredEntry,
	res domain.ScoreResult,
) error {
	if err := r.checkpoint.WriteSnapshot(entries); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	for _, w := range r.snapshots {
		if err := w.WriteSnapshot(entries); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	if r.status != nil {
		rec := domain.StatusRecord{
			RunID:    runID,
			Folio:    entry.Folio,
			Name:     entry.Name,
			Status:   res.Status(),
			Attempts: res.Attempts,
		}
		if !res.Valid {
			rec.RawResponse = res.Raw
			if res.Err != nil {
				rec.Error = res.Err.Error()
			}
		}
		if err := r.status.Append(rec); err != nil {
			return fmt.Errorf("failed to append status: %w", err)
		}
	}
	if r.store != nil {
		if err := r.store.SaveScore(ctx, runID, entry, res.Status(), res.Attempts); err != nil {
			return fmt.Errorf("failed to store score: %w", err)
		}
	}
	return nil
}
