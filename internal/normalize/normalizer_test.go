package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-judicatura/internal/domain"
)

func decodeRecord(t *testing.T, s string) domain.RawRecord {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var rec map[string]any
	require.NoError(t, dec.Decode(&rec))
	return rec
}

func str(s string) *string { return &s }

func TestNormalize_CompositeNameScenario(t *testing.T) {
	// Given a record with only an id, a composite name and a candidacy type
	raw := decodeRecord(t, `{"id": "42", "nombreCompleto": "Ana Maria Lopez Garcia", "idTipoCandidatura": "3"}`)

	// When it is normalized
	c, err := New().Normalize(raw, "jueces_distrito")

	// Then the id fills folio and internal id, and the name is split
	require.NoError(t, err)
	assert.Equal(t, str("42"), c.Folio)
	assert.Equal(t, str("Ana"), c.Name)
	assert.Equal(t, str("Maria"), c.FirstSurname)
	assert.Equal(t, str("Lopez Garcia"), c.SecondSurname)
	assert.Equal(t, str("42"), c.InternalID)
	assert.Equal(t, str("3"), c.CandidacyTypeID)
	assert.Equal(t, "jueces_distrito", c.Category)

	// And the profile URL is derived from the two identifiers
	require.NotNil(t, c.ProfileURL)
	assert.Equal(t, "https://candidaturaspoderjudicial.ine.mx/detalleCandidato/42/3", *c.ProfileURL)
}

func TestNormalize_SynonymResolution(t *testing.T) {
	tests := []struct {
		name   string
		record string
		check  func(t *testing.T, c domain.Candidate)
	}{
		{
			name:   "first synonym wins over later ones",
			record: `{"folio": "F-1", "id": "99", "nombre": "Luis", "name": "Louis"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Equal(t, str("F-1"), c.Folio)
				assert.Equal(t, str("Luis"), c.Name)
			},
		},
		{
			name:   "empty values fall through to the next synonym",
			record: `{"folio": "", "id": 0, "idCandidato": 1234, "nombres": "Rosa"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Equal(t, str("1234"), c.Folio)
				assert.Equal(t, str("1234"), c.InternalID)
				assert.Equal(t, str("Rosa"), c.Name)
			},
		},
		{
			name:   "key lookup is case sensitive",
			record: `{"Folio": "X", "NOMBRE": "Y", "clave": "C-7"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Equal(t, str("C-7"), c.Folio)
				assert.Nil(t, c.Name)
			},
		},
		{
			name:   "surnames gender and position resolve from alternates",
			record: `{"folio": "1", "nombre": "Eva", "paterno": "Ruiz", "apellidoMaterno": "Soto", "sexo": "M", "cargo": "Jueza"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Equal(t, str("Ruiz"), c.FirstSurname)
				assert.Equal(t, str("Soto"), c.SecondSurname)
				assert.Equal(t, str("M"), c.Gender)
				assert.Equal(t, str("Jueza"), c.Position)
			},
		},
		{
			name:   "missing fields stay null",
			record: `{"folio": "1"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Nil(t, c.Name)
				assert.Nil(t, c.Gender)
				assert.Nil(t, c.ProfileURL)
				require.NotNil(t, c.Documents)
				assert.Empty(t, c.Documents)
			},
		},
		{
			name:   "documents take the first list even when empty",
			record: `{"folio": "1", "documentos": [], "docs": ["a.pdf"]}`,
			check: func(t *testing.T, c domain.Candidate) {
				require.NotNil(t, c.Documents)
				assert.Empty(t, c.Documents)
			},
		},
		{
			name:   "non-list documents are ignored",
			record: `{"folio": "1", "documentos": "cv.pdf", "archivos": [{"url": "x"}]}`,
			check: func(t *testing.T, c domain.Candidate) {
				require.Len(t, c.Documents, 1)
				assert.Equal(t, map[string]any{"url": "x"}, c.Documents[0])
			},
		},
		{
			name:   "two token composite name",
			record: `{"folio": "1", "nombreCompleto": "Ana Lopez"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Equal(t, str("Ana"), c.Name)
				assert.Equal(t, str("Lopez"), c.FirstSurname)
				assert.Nil(t, c.SecondSurname)
			},
		},
		{
			name:   "direct name suppresses composite split",
			record: `{"folio": "1", "nombre": "Ana", "nombreCompleto": "Otra Persona Distinta"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Equal(t, str("Ana"), c.Name)
				assert.Nil(t, c.FirstSurname)
			},
		},
		{
			name:   "profile url needs both identifiers",
			record: `{"idCandidato": 7}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Equal(t, str("7"), c.InternalID)
				assert.Nil(t, c.ProfileURL)
			},
		},
		{
			name:   "profile url is never read from the source",
			record: `{"folio": "1", "url_perfil": "https://elsewhere"}`,
			check: func(t *testing.T, c domain.Candidate) {
				assert.Nil(t, c.ProfileURL)
			},
		},
	}

	n := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := n.Normalize(decodeRecord(t, tt.record), "cat")
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestNormalize_Rejection(t *testing.T) {
	n := New()

	_, err := n.Normalize(decodeRecord(t, `{"sexo": "H", "cargo": "Juez"}`), "jueces_distrito")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRecordRejected)

	// A single-token composite name does not rescue the record.
	_, err = n.Normalize(decodeRecord(t, `{"nombreCompleto": "Cher"}`), "jueces_distrito")
	assert.ErrorIs(t, err, domain.ErrRecordRejected)
}

func TestNormalizeAll_CountsRejections(t *testing.T) {
	records := []domain.RawRecord{
		decodeRecord(t, `{"folio": "1"}`),
		decodeRecord(t, `{"cargo": "Juez"}`),
		decodeRecord(t, `{"nombre": "Ana"}`),
		decodeRecord(t, `{}`),
	}

	out, report := New().NormalizeAll(records, "magistrados_circuito")

	assert.Len(t, out, 2)
	assert.Equal(t, Report{Category: "magistrados_circuito", Total: 4, Kept: 2, Rejected: 2}, report)
}

func TestNormalize_CategoryFallback(t *testing.T) {
	c, err := New().Normalize(decodeRecord(t, `{"folio": "1", "categoria": "ministros_suprema_corte"}`), "")

	require.NoError(t, err)
	assert.Equal(t, "ministros_suprema_corte", c.Category)
}

func TestNormalize_Options(t *testing.T) {
	n := New(
		WithSynonyms(map[Field][]string{FieldInternalID: {"idCandidato"}}),
		WithProfileURLTemplate("https://example.test/{idTipoCandidatura}/{idCandidato}"),
	)

	t.Run("override narrows internal id synonyms", func(t *testing.T) {
		c, err := n.Normalize(decodeRecord(t, `{"id": "42", "idTipoCandidatura": "3"}`), "x")
		require.NoError(t, err)
		assert.Equal(t, str("42"), c.Folio)
		assert.Nil(t, c.InternalID)
		assert.Nil(t, c.ProfileURL)
	})

	t.Run("custom template", func(t *testing.T) {
		c, err := n.Normalize(decodeRecord(t, `{"idCandidato": "42", "idTipoCandidatura": "3"}`), "x")
		require.NoError(t, err)
		require.NotNil(t, c.ProfileURL)
		assert.Equal(t, "https://example.test/3/42", *c.ProfileURL)
	})

	t.Run("defaults are untouched", func(t *testing.T) {
		assert.Equal(t, []string{"idCandidato", "id"}, DefaultSynonyms()[FieldInternalID])
	})
}

func TestNormalize_JSONShape(t *testing.T) {
	c, err := New().Normalize(decodeRecord(t, `{"folio": "9", "nombre": "Ana"}`), "jueces_distrito")
	require.NoError(t, err)

	b, err := json.Marshal(c)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"folio": "9", "nombre": "Ana", "primer_apellido": null, "segundo_apellido": null,
		"genero": null, "puesto": null, "categoria": "jueces_distrito", "url_perfil": null,
		"documentos": [], "idCandidato": null, "idTipoCandidatura": null
	}`, string(b))
}
