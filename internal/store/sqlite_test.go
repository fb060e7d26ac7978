package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-judicatura/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteScoreStore {
	t.Helper()
	s, err := OpenSQLiteScoreStore(context.Background(), filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteScoreStore_SaveAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	// Given an ERROR entry that is later rescored within the same run
	first := domain.ScoredEntry{Folio: "A1", Name: "Ana"}
	require.NoError(t, s.SaveScore(ctx, "run-1", first, domain.StatusError, 5))
	second := domain.ScoredEntry{Folio: "A1", Name: "Ana", Scoring: map[string]any{"CT": map[string]any{"score": 72}}}
	require.NoError(t, s.SaveScore(ctx, "run-1", second, domain.StatusOK, 1))
	require.NoError(t, s.SaveScore(ctx, "run-2", domain.ScoredEntry{Folio: "B2", Name: "Beto"}, domain.StatusOK, 2))

	// When reading back
	rows, err := s.RunScores(ctx, "run-1")
	require.NoError(t, err)
	folios, err := s.ScoredFolios(ctx)
	require.NoError(t, err)

	// Then the upsert replaced the row and folios span every run
	require.Len(t, rows, 1)
	assert.Equal(t, domain.StatusOK, rows[0].Status)
	assert.Equal(t, 1, rows[0].Attempts)
	assert.Equal(t, float64(72), rows[0].Entry.Scoring["CT"].(map[string]any)["score"])
	assert.True(t, fixed.Equal(rows[0].UpdatedAt))
	assert.Equal(t, map[string]struct{}{"A1": {}, "B2": {}}, folios)
}

func TestSQLiteScoreStore_NullScoring(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveScore(ctx, "r", domain.ScoredEntry{Folio: "X", Name: "Xi"}, domain.StatusError, 5))

	rows, err := s.RunScores(ctx, "r")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Entry.Scoring)
	assert.Equal(t, "Xi", rows[0].Entry.Name)
}

func TestSQLiteScoreStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scores.db")

	s, err := OpenSQLiteScoreStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveScore(ctx, "r", domain.ScoredEntry{Folio: "A1"}, domain.StatusOK, 1))
	require.NoError(t, s.Close())

	s, err = OpenSQLiteScoreStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	folios, err := s.ScoredFolios(ctx)
	require.NoError(t, err)
	assert.Contains(t, folios, "A1")
}
