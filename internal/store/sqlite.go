package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/ports"
)

var _ ports.ScoreStore = (*SQLiteScoreStore)(nil)

// SQLiteScoreStore mirrors scored entries into a SQLite table keyed by
// (run_id, folio).
type SQLiteScoreStore struct {
	db  *sql.DB
	now func() time.Time
}

// StoredScore is one row of the scores table.
type StoredScore struct {
	RunID     string
	Entry     domain.ScoredEntry
	Status    domain.ScoreStatus
	Attempts  int
	UpdatedAt time.Time
}

// OpenSQLiteScoreStore opens dsn with the pure-Go sqlite driver and
// migrates the schema.
func OpenSQLiteScoreStore(ctx context.Context, dsn string) (*SQLiteScoreStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ports.NewStoreError("sqlite", "Open", err)
	}
	// :memory: databases exist per connection.
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteScoreStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteScoreStore wraps an open database and migrates the schema.
func NewSQLiteScoreStore(ctx context.Context, db *sql.DB) (*SQLiteScoreStore, error) {
	s := &SQLiteScoreStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, ports.NewStoreError("sqlite", "Migrate", err)
	}
	return s, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS scores (
		run_id     TEXT NOT NULL,
		folio      TEXT NOT NULL,
		nombre     TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0,
		scoring    JSON,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (run_id, folio)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_folio ON scores (folio)`,
}

func (s *SQLiteScoreStore) migrate(ctx context.Context) error {
	for _, q := range migrations {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// SaveScore upserts the entry for (runID, entry.Folio).
func (s *SQLiteScoreStore) SaveScore(
	ctx context.Context,
	runID string,
	entry domain.ScoredEntry,
	status domain.ScoreStatus,
	attempts int,
) error {
	scoring, err := json.Marshal(entry.Scoring)
	if err != nil {
		return fmt.Errorf("failed to encode scoring for %s: %w", entry.Folio, err)
	}

	query := `INSERT INTO scores (run_id, folio, nombre, status, attempts, scoring, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (run_id, folio) DO UPDATE SET
		nombre = excluded.nombre,
		status = excluded.status,
		attempts = excluded.attempts,
		scoring = excluded.scoring,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		runID, entry.Folio, entry.Name, string(status), attempts, string(scoring),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return ports.NewStoreError("sqlite", "SaveScore", fmt.Errorf("folio %s: %w", entry.Folio, err))
	}
	return nil
}

// ScoredFolios returns every folio stored by any run.
func (s *SQLiteScoreStore) ScoredFolios(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT folio FROM scores`)
	if err != nil {
		return nil, ports.NewStoreError("sqlite", "ScoredFolios", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]struct{})
	for rows.Next() {
		var folio string
		if err := rows.Scan(&folio); err != nil {
			return nil, err
		}
		out[folio] = struct{}{}
	}
	return out, rows.Err()
}

// RunScores returns the rows stored for runID ordered by folio.
func (s *SQLiteScoreStore) RunScores(ctx context.Context, runID string) ([]StoredScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, folio, nombre, status, attempts, scoring, updated_at
		FROM scores
		WHERE run_id = ?
		ORDER BY folio`, runID)
	if err != nil {
		return nil, ports.NewStoreError("sqlite", "RunScores", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredScore
	for rows.Next() {
		var (
			rec       StoredScore
			status    string
			scoring   sql.NullString
			updatedAt string
		)
		if err := rows.Scan(&rec.RunID, &rec.Entry.Folio, &rec.Entry.Name, &status, &rec.Attempts, &scoring, &updatedAt); err != nil {
			return nil, err
		}
		rec.Status = domain.ScoreStatus(status)
		if scoring.Valid && scoring.String != "null" {
			if err := json.Unmarshal([]byte(scoring.String), &rec.Entry.Scoring); err != nil {
				return nil, fmt.Errorf("failed to decode scoring for %s: %w", rec.Entry.Folio, err)
			}
		}
		if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at for %s: %w", rec.Entry.Folio, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteScoreStore) Close() error {
	return s.db.Close()
}
