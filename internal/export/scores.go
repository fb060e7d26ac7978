package export

import (
	"strings"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// ListSeparator joins strengths and improvement areas into one cell.
const ListSeparator = "; "

// Flattened list columns.
const (
	ColumnStrengths        = "ventajas"
	ColumnImprovementAreas = "areas_oportunidad"
)

// ScoreColumns is the header of the flattened score table.
var ScoreColumns = scoreColumns()

func scoreColumns() []string {
	cols := []string{"folio", "nombre"}
	for _, d := range domain.Dimensions {
		cols = append(cols, string(d)+"_score", string(d)+"_explanation")
	}
	return append(cols, ColumnStrengths, ColumnImprovementAreas)
}

// ScoreRow flattens a scored entry in ScoreColumns order. Missing or
// malformed parts of the scoring object become empty cells, so entries
// persisted with an ERROR status still produce a row.
func ScoreRow(e domain.ScoredEntry) []string {
	row := make([]string, 0, len(ScoreColumns))
	row = append(row, e.Folio, e.Name)
	for _, d := range domain.Dimensions {
		dim, _ := e.Scoring[string(d)].(map[string]any)
		row = append(row, cell(dim["score"]), cell(dim["explanation"]))
	}
	return append(row,
		joinList(e.Scoring[domain.KeyStrengths]),
		joinList(e.Scoring[domain.KeyImprovementAreas]),
	)
}

// ScoreCSV rewrites the flattened score table after every candidate.
type ScoreCSV struct {
	Path string
}

// WriteSnapshot replaces the file with one row per entry.
func (s ScoreCSV) WriteSnapshot(entries []domain.ScoredEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ScoreRow(e))
	}
	return WriteCSV(s.Path, ScoreColumns, rows)
}

func cell(v any) string {
	return domain.FormatScalar(domain.NormalizeScalar(v))
}

// joinList joins list items with ListSeparator. A plain string is kept.
func joinList(v any) string {
	switch l := v.(type) {
	case nil:
		return ""
	case string:
		return l
	case []string:
		return strings.Join(l, ListSeparator)
	case []any:
		parts := make([]string, 0, len(l))
		for _, item := range l {
			parts = append(parts, cell(item))
		}
		return strings.Join(parts, ListSeparator)
	default:
		return cell(v)
	}
}
