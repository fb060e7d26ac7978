package export

import (
	"github.com/ahrav/go-judicatura/internal/domain"
)

// Raw record fields appended to joined score rows, then the profile URL
// of the normalized candidate.
var (
	JoinRawColumns = []string{
		"nombreEstado", "idDistritoJudicial", "idTipoCandidatura",
		"categoria", "nombreCorto", "sexo",
	}
	JoinColumns = append(append(append([]string{}, ScoreColumns...), JoinRawColumns...), "url_perfil")
)

// JoinScores enriches flattened score rows with raw record fields and the
// normalized candidate's profile URL. raw is indexed by the string form of
// the internal id (see normalize.IndexRaw); a folio is looked up there
// first and then through the candidate's internal id. Unknown values
// render as empty cells.
func JoinScores(entries []domain.ScoredEntry, raw map[string]domain.RawRecord, cands []domain.Candidate) [][]string {
	byFolio := make(map[string]domain.Candidate, len(cands))
	for _, c := range cands {
		f := c.FolioOrEmpty()
		if f == "" {
			continue
		}
		if _, dup := byFolio[f]; !dup {
			byFolio[f] = c
		}
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		c, known := byFolio[e.Folio]
		rec, ok := raw[e.Folio]
		if !ok && known && c.InternalID != nil {
			rec = raw[*c.InternalID]
		}

		row := ScoreRow(e)
		for _, col := range JoinRawColumns {
			row = append(row, cell(rec[col]))
		}
		row = append(row, str(c.ProfileURL))
		rows = append(rows, row)
	}
	return rows
}

// WriteJoinedCSV writes the joined score table.
func WriteJoinedCSV(path string, rows [][]string) error {
	return WriteCSV(path, JoinColumns, rows)
}
