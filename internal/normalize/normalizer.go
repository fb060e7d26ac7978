package normalize

import (
	"encoding/json"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// Normalizer turns raw feed records into canonical Candidates. It holds no
// mutable state and is safe for concurrent use.
type Normalizer struct {
	synonyms    SynonymTable
	urlTemplate string
	logger      *zap.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSynonyms overrides the key lists of the given fields.
func WithSynonyms(overrides map[Field][]string) Option {
	return func(n *Normalizer) { n.synonyms = n.synonyms.Merge(overrides) }
}

// WithProfileURLTemplate sets the template used to derive profile URLs.
func WithProfileURLTemplate(tmpl string) Option {
	return func(n *Normalizer) {
		if tmpl != "" {
			n.urlTemplate = tmpl
		}
	}
}

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Normalizer with the default synonym table.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		synonyms:    DefaultSynonyms(),
		urlTemplate: DefaultProfileURLTemplate,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Report summarizes one NormalizeAll call.
type Report struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
	Kept     int    `json:"kept"`
	Rejected int    `json:"rejected"`
}

// Normalize maps one raw record to a Candidate. It returns a
// *domain.RecordRejectedError when neither a name nor a folio resolves.
func (n *Normalizer) Normalize(raw domain.RawRecord, category string) (domain.Candidate, error) {
	c := domain.Candidate{
		Folio:           n.resolveString(raw, FieldFolio),
		Name:            n.resolveString(raw, FieldName),
		FirstSurname:    n.resolveString(raw, FieldFirstSurname),
		SecondSurname:   n.resolveString(raw, FieldSecondSurname),
		Gender:          n.resolveString(raw, FieldGender),
		Position:        n.resolveString(raw, FieldPosition),
		InternalID:      n.resolveString(raw, FieldInternalID),
		CandidacyTypeID: n.resolveString(raw, FieldCandidacyTypeID),
		Documents:       n.resolveDocuments(raw),
		Category:        category,
	}

	if c.Category == "" {
		if v := n.resolveString(raw, FieldCategory); v != nil {
			c.Category = *v
		}
	}

	if c.Name == nil {
		n.splitFullName(raw, &c)
	}

	c.ProfileURL = n.profileURL(c.InternalID, c.CandidacyTypeID)

	if c.Name == nil && c.Folio == nil {
		return domain.Candidate{}, &domain.RecordRejectedError{Category: category, Reason: "no name or folio"}
	}
	return c, nil
}

// NormalizeAll normalizes records in order, dropping rejected ones.
func (n *Normalizer) NormalizeAll(records []domain.RawRecord, category string) ([]domain.Candidate, Report) {
	report := Report{Category: category, Total: len(records)}
	out := make([]domain.Candidate, 0, len(records))
	for i, raw := range records {
		c, err := n.Normalize(raw, category)
		if err != nil {
			report.Rejected++
			n.logger.Debug("record rejected",
				zap.String("category", category),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, c)
	}
	report.Kept = len(out)
	return out, report
}

// ProfileURL derives the profile URL for the given identifiers, or nil
// when either is missing.
func (n *Normalizer) ProfileURL(internalID, candidacyTypeID *string) *string {
	return n.profileURL(internalID, candidacyTypeID)
}

func (n *Normalizer) profileURL(internalID, candidacyTypeID *string) *string {
	if internalID == nil || candidacyTypeID == nil {
		return nil
	}
	u := strings.NewReplacer(
		PlaceholderInternalID, url.PathEscape(*internalID),
		PlaceholderCandidacyTypeID, url.PathEscape(*candidacyTypeID),
	).Replace(n.urlTemplate)
	return &u
}

// splitFullName fills name parts from the composite name key. Three or
// more tokens yield given name, first surname and the remaining tokens as
// second surname; two tokens yield given name and first surname.
func (n *Normalizer) splitFullName(raw domain.RawRecord, c *domain.Candidate) {
	for _, key := range n.synonyms[FieldFullName] {
		full, ok := raw[key].(string)
		if !ok {
			continue
		}
		parts := strings.Fields(full)
		switch {
		case len(parts) >= 3:
			c.Name = domain.StringPtr(parts[0])
			c.FirstSurname = domain.StringPtr(parts[1])
			c.SecondSurname = domain.StringPtr(strings.Join(parts[2:], " "))
		case len(parts) == 2:
			c.Name = domain.StringPtr(parts[0])
			c.FirstSurname = domain.StringPtr(parts[1])
		}
		return
	}
}

// resolveString returns the first present, non-empty value among the
// field's synonyms, rendered as a string.
func (n *Normalizer) resolveString(raw domain.RawRecord, f Field) *string {
	for _, key := range n.synonyms[f] {
		v, ok := raw[key]
		if !ok || isEmpty(v) {
			continue
		}
		s := domain.FormatScalar(v)
		return &s
	}
	return nil
}

// resolveDocuments returns the first synonym holding a list, empty or not,
// and an empty list when no synonym does.
func (n *Normalizer) resolveDocuments(raw domain.RawRecord) []any {
	for _, key := range n.synonyms[FieldDocuments] {
		if docs, ok := raw[key].([]any); ok {
			return append(make([]any, 0, len(docs)), docs...)
		}
	}
	return []any{}
}

// isEmpty reports values that do not count as present: null, empty
// strings, false, numeric zero and empty collections.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case float64:
		return x == 0
	case int64:
		return x == 0
	case int:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
