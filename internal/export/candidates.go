package export

import (
	"github.com/ahrav/go-judicatura/internal/domain"
)

// CandidateColumns is the header of the normalized candidate table.
var CandidateColumns = []string{
	"folio", "nombre", "primer_apellido", "segundo_apellido", "genero",
	"puesto", "categoria", "url_perfil", "documentos", "idCandidato",
	"idTipoCandidatura",
}

// AssociationColumns are appended to CandidateColumns for associated
// candidates.
var AssociationColumns = []string{
	"distrito_judicial", "circuito_judicial", "nombre_distrito", "entidad_distrito",
}

// LookupColumns is the header of the reverse district lookup table.
var LookupColumns = []string{
	"circuito_judicial", "distrito_judicial", "nombre_distrito", "entidad",
	"num_candidatos", "candidatos",
}

// CandidateRow renders a candidate in CandidateColumns order. Null fields
// are empty cells; documents are written as compact JSON.
func CandidateRow(c domain.Candidate) []string {
	docs := ""
	if len(c.Documents) > 0 {
		docs = domain.FormatScalar(c.Documents)
	}
	return []string{
		str(c.Folio), str(c.Name), str(c.FirstSurname), str(c.SecondSurname),
		str(c.Gender), str(c.Position), c.Category, str(c.ProfileURL), docs,
		str(c.InternalID), str(c.CandidacyTypeID),
	}
}

// AssociatedRow renders an associated candidate in CandidateColumns then
// AssociationColumns order.
func AssociatedRow(ac domain.AssociatedCandidate) []string {
	return append(CandidateRow(ac.Candidate),
		domain.FormatScalar(ac.DistrictID),
		domain.FormatScalar(ac.CircuitID),
		domain.FormatScalar(ac.DistrictName),
		domain.FormatScalar(ac.EntityName),
	)
}

// LookupRow renders a lookup row in LookupColumns order.
func LookupRow(r domain.LookupRow) []string {
	return []string{
		domain.FormatScalar(r.CircuitID),
		domain.FormatScalar(r.DistrictID),
		domain.FormatScalar(r.DistrictName),
		domain.FormatScalar(r.EntityName),
		domain.FormatScalar(int64(r.Count)),
		r.Summary,
	}
}

// WriteCandidatesCSV writes normalized candidates.
func WriteCandidatesCSV(path string, cands []domain.Candidate) error {
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		rows = append(rows, CandidateRow(c))
	}
	return WriteCSV(path, CandidateColumns, rows)
}

// WriteAssociatedCSV writes candidates with their district columns.
func WriteAssociatedCSV(path string, cands []domain.AssociatedCandidate) error {
	header := append(append([]string{}, CandidateColumns...), AssociationColumns...)
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		rows = append(rows, AssociatedRow(c))
	}
	return WriteCSV(path, header, rows)
}

// WriteLookupCSV writes the reverse district lookup table.
func WriteLookupCSV(path string, rows []domain.LookupRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, LookupRow(r))
	}
	return WriteCSV(path, LookupColumns, out)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
