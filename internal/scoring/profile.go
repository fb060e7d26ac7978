package scoring

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// DefaultCVMaxChars caps the CV text included in a prompt.
const DefaultCVMaxChars = 8000

// Raw record keys read into a Profile.
const (
	rawName                 = "nombreCandidato"
	rawGender               = "sexo"
	rawCategory             = "categoria"
	rawState                = "nombreEstado"
	rawSpecialty            = "especialidad"
	rawPriorWork            = "descripcionTP"
	rawDescription          = "descripcionCandidato"
	rawJurisdictionalVision = "visionJurisdiccional"
	rawJusticeVision        = "visionImparticionJusticia"
	rawProposal1            = "propuesta1"
	rawProposal2            = "propuesta2"
	rawProposal3            = "propuesta3"
)

// Profile is the free-text view of a candidate interpolated into the
// prompt. Missing fields are empty strings.
type Profile struct {
	Folio                string
	Name                 string
	Gender               string
	Category             string
	State                string
	Specialty            string
	PriorWork            string
	Description          string
	JurisdictionalVision string
	JusticeVision        string
	Proposal1            string
	Proposal2            string
	Proposal3            string
	CV                   string
}

// NewProfile builds a Profile from a candidate and its raw record. Raw
// fields take precedence; the canonical name, gender and category fill in
// when the raw record lacks them. cv is truncated to maxChars runes.
func NewProfile(c domain.Candidate, raw domain.RawRecord, cv string, maxChars int) Profile {
	p := Profile{
		Folio:                c.FolioOrEmpty(),
		Name:                 rawString(raw, rawName),
		Gender:               rawString(raw, rawGender),
		Category:             rawString(raw, rawCategory),
		State:                rawString(raw, rawState),
		Specialty:            rawString(raw, rawSpecialty),
		PriorWork:            rawString(raw, rawPriorWork),
		Description:          rawString(raw, rawDescription),
		JurisdictionalVision: rawString(raw, rawJurisdictionalVision),
		JusticeVision:        rawString(raw, rawJusticeVision),
		Proposal1:            rawString(raw, rawProposal1),
		Proposal2:            rawString(raw, rawProposal2),
		Proposal3:            rawString(raw, rawProposal3),
		CV:                   Truncate(cv, maxChars),
	}
	if p.Name == "" {
		p.Name = c.DisplayName()
	}
	if p.Gender == "" && c.Gender != nil {
		p.Gender = *c.Gender
	}
	if p.Category == "" {
		p.Category = c.Category
	}
	return p
}

// Truncate returns at most n runes of s. A non-positive n disables the cap.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func rawString(raw domain.RawRecord, key string) string {
	if raw == nil {
		return ""
	}
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return domain.FormatScalar(domain.NormalizeScalar(v))
}

// CVSource supplies external profile text addressed by folio.
type CVSource interface {
	CV(folio string) (string, error)
}

// DirCVSource reads <Dir>/<folio>_cv.txt files.
type DirCVSource struct {
	Dir string
}

// CV returns the text for folio, or "" when no file exists.
func (s DirCVSource) CV(folio string) (string, error) {
	if s.Dir == "" || folio == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(folio)+"_cv.txt"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read CV for %s: %w", folio, err)
	}
	return string(data), nil
}
