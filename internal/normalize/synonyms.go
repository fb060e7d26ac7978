// Package normalize maps heterogeneous feed records onto the canonical
// Candidate schema.
//
// Each canonical field owns an ordered list of accepted source keys. The
// first key that is present with a non-empty value wins. Tables are plain
// data so callers can override any field from configuration.
package normalize

// Field names a canonical Candidate field for synonym resolution.
type Field string

// Canonical fields resolved from source records.
const (
	FieldFolio           Field = "folio"
	FieldName            Field = "nombre"
	FieldFirstSurname    Field = "primer_apellido"
	FieldSecondSurname   Field = "segundo_apellido"
	FieldGender          Field = "genero"
	FieldPosition        Field = "puesto"
	FieldInternalID      Field = "idCandidato"
	FieldCandidacyTypeID Field = "idTipoCandidatura"
	FieldDocuments       Field = "documentos"
	FieldFullName        Field = "nombreCompleto"
	FieldCategory        Field = "categoria"
)

// SynonymTable maps each canonical field to its ordered source keys.
type SynonymTable map[Field][]string

// DefaultSynonyms returns the key lists observed across the published feeds.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		FieldFolio:           {"folio", "id", "idCandidato", "clave", "folioRegistro"},
		FieldName:            {"nombre", "nombres", "name", "nombreCandidato"},
		FieldFirstSurname:    {"primerApellido", "apellido1", "paterno", "apellidoPaterno"},
		FieldSecondSurname:   {"segundoApellido", "apellido2", "materno", "apellidoMaterno"},
		FieldGender:          {"genero", "sexo", "gender"},
		FieldPosition:        {"puesto", "cargo", "tipoCandidatura", "position", "nombreCargo"},
		FieldInternalID:      {"idCandidato", "id"},
		FieldCandidacyTypeID: {"idTipoCandidatura"},
		FieldDocuments:       {"documentos", "docs", "archivos", "attachments"},
		FieldFullName:        {"nombreCompleto"},
		FieldCategory:        {"categoria"},
	}
}

// Merge returns a copy of t with every non-empty list in overrides
// replacing the corresponding entry.
func (t SynonymTable) Merge(overrides map[Field][]string) SynonymTable {
	out := make(SynonymTable, len(t))
	for f, keys := range t {
		out[f] = append([]string(nil), keys...)
	}
	for f, keys := range overrides {
		if len(keys) > 0 {
			out[f] = append([]string(nil), keys...)
		}
	}
	return out
}

// DefaultCategories lists the feed tags published for the judicial election.
var DefaultCategories = []string{
	"jueces_distrito",
	"magistrados_circuito",
	"magistrados_sala_superior",
	"magistrados_sala_regional",
	"magistrados_tribunal_disciplina",
	"ministros_suprema_corte",
}

// DefaultProfileURLTemplate is the public candidate detail page.
const DefaultProfileURLTemplate = "https://candidaturaspoderjudicial.ine.mx/detalleCandidato/{idCandidato}/{idTipoCandidatura}"

// Placeholders substituted in a profile URL template.
const (
	PlaceholderInternalID      = "{idCandidato}"
	PlaceholderCandidacyTypeID = "{idTipoCandidatura}"
)
