package domain

// RawRecord is one source-feed record as decoded from JSON. Keys are
// matched case-sensitively.
type RawRecord map[string]any

// Candidate is the canonical candidate schema every feed is normalized
// into. Pointer fields are null when no synonym resolved them. A Candidate
// always carries a non-nil Name or Folio.
type Candidate struct {
	Folio           *string `json:"folio"`
	Name            *string `json:"nombre"`
	FirstSurname    *string `json:"primer_apellido"`
	SecondSurname   *string `json:"segundo_apellido"`
	Gender          *string `json:"genero"`
	Position        *string `json:"puesto"`
	Category        string  `json:"categoria"`
	ProfileURL      *string `json:"url_perfil"`
	Documents       []any   `json:"documentos"`
	InternalID      *string `json:"idCandidato"`
	CandidacyTypeID *string `json:"idTipoCandidatura"`
}

// FolioOrEmpty returns the folio, or "" when it is null.
func (c Candidate) FolioOrEmpty() string { return deref(c.Folio) }

// DisplayName returns the given name, falling back to the folio so that
// summaries never contain blank entries.
func (c Candidate) DisplayName() string {
	if c.Name != nil {
		return *c.Name
	}
	return deref(c.Folio)
}

// Association links a candidate to a judicial district. All fields are
// null until a match is found.
type Association struct {
	DistrictID   Scalar    `json:"distrito_judicial"`
	CircuitID    Scalar    `json:"circuito_judicial"`
	DistrictName Scalar    `json:"nombre_distrito"`
	EntityName   Scalar    `json:"entidad_distrito"`
	Tier         MatchTier `json:"-"`
}

// Matched reports whether the association was resolved by either tier.
func (a Association) Matched() bool { return a.Tier != TierNone }

// MatchTier records which matching strategy produced an Association.
type MatchTier int

const (
	// TierNone means no district was matched.
	TierNone MatchTier = iota
	// TierExact is a (circuit, district) identifier pair match.
	TierExact
	// TierState is the state-name fallback.
	TierState
)

// String returns the tier name used in logs and metric labels.
func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierState:
		return "state"
	default:
		return "none"
	}
}

// AssociatedCandidate is a Candidate together with its district
// Association. It serializes as one flat object.
type AssociatedCandidate struct {
	Candidate
	Association
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
