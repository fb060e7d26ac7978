package export

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-judicatura/internal/domain"
)

func candidate(folio, name string) domain.Candidate {
	return domain.Candidate{
		Folio:      domain.StringPtr(folio),
		Name:       domain.StringPtr(name),
		Category:   "jueces_distrito",
		ProfileURL: domain.StringPtr("https://example.org/" + folio),
		Documents:  []any{json.Number("3"), "cv.pdf"},
	}
}

func TestCandidateRow(t *testing.T) {
	row := CandidateRow(candidate("A1", "Ana"))

	require.Len(t, row, len(CandidateColumns))
	assert.Equal(t, "A1", row[0])
	assert.Equal(t, "Ana", row[1])
	assert.Equal(t, "", row[2], "null surname is empty")
	assert.Equal(t, "jueces_distrito", row[6])
	assert.Equal(t, `[3,"cv.pdf"]`, row[8])
}

func TestWriteAssociatedCSV(t *testing.T) {
	// Given one matched and one unmatched candidate
	path := filepath.Join(t.TempDir(), "assoc.csv")
	matched := domain.AssociatedCandidate{
		Candidate: candidate("A1", "Ana"),
		Association: domain.District{
			CircuitID: int64(5), DistrictID: int64(1), DistrictName: "Hermosillo", EntityName: "SONORA",
		}.Association(domain.TierExact),
	}
	unmatched := domain.AssociatedCandidate{Candidate: candidate("B2", "Beto")}

	// When writing
	require.NoError(t, WriteAssociatedCSV(path, []domain.AssociatedCandidate{matched, unmatched}))

	// Then district columns follow candidate columns and nulls are empty
	records := readCSV(t, path)
	require.Len(t, records, 3)
	header := records[0]
	assert.Equal(t, AssociationColumns, header[len(CandidateColumns):])
	n := len(CandidateColumns)
	assert.Equal(t, []string{"1", "5", "Hermosillo", "SONORA"}, records[1][n:])
	assert.Equal(t, []string{"", "", "", ""}, records[2][n:])
}

func TestWriteLookupCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookup.csv")
	rows := []domain.LookupRow{
		{Count: 1, Summary: "Beto"},
		{CircuitID: int64(5), DistrictID: int64(1), EntityName: "SONORA", Count: 2, Summary: "Ana, Eva"},
	}

	require.NoError(t, WriteLookupCSV(path, rows))

	records := readCSV(t, path)
	assert.Equal(t, [][]string{
		LookupColumns,
		{"", "", "", "", "1", "Beto"},
		{"5", "1", "", "SONORA", "2", "Ana, Eva"},
	}, records)
}

func TestWriteCandidatesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.csv")

	require.NoError(t, WriteCandidatesCSV(path, []domain.Candidate{candidate("A1", "Ana")}))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, CandidateColumns, records[0])
	assert.Equal(t, "https://example.org/A1", records[1][7])
}
