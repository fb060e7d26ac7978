// Package store persists batch scoring state: the JSON checkpoint that
// doubles as the scored collection, the append-only JSONL status log and
// an optional SQLite mirror of scored entries.
package store

import (
	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/export"
	"github.com/ahrav/go-judicatura/internal/source"
)

// JSONCheckpoint is the scored collection file. Every snapshot rewrites
// the whole array atomically, so an interrupted run leaves the last
// complete snapshot behind for resume.
type JSONCheckpoint struct {
	Path string
}

// NewJSONCheckpoint creates a checkpoint at path.
func NewJSONCheckpoint(path string) *JSONCheckpoint {
	return &JSONCheckpoint{Path: path}
}

// Load returns the entries of the existing checkpoint, or none when the
// file does not exist yet.
func (c *JSONCheckpoint) Load() ([]domain.ScoredEntry, error) {
	return source.LoadScoredEntries(c.Path)
}

// WriteSnapshot replaces the checkpoint with entries.
func (c *JSONCheckpoint) WriteSnapshot(entries []domain.ScoredEntry) error {
	if entries == nil {
		entries = []domain.ScoredEntry{}
	}
	return export.WriteJSON(c.Path, entries)
}
