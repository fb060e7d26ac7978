package domain

// Dimension identifies one of the five evaluation axes.
type Dimension string

// Evaluation dimensions, in rubric order.
const (
	DimensionCT Dimension = "CT" // Competencia Técnica
	DimensionIE Dimension = "IE" // Independencia y Ética
	DimensionEJ Dimension = "EJ" // Enfoque Jurídico
	DimensionCR Dimension = "CR" // Capacidad Resolutiva
	DimensionSS Dimension = "SS" // Sensibilidad Social
)

// Dimensions lists every Dimension in rubric order.
var Dimensions = []Dimension{DimensionCT, DimensionIE, DimensionEJ, DimensionCR, DimensionSS}

// Keys of the list fields in a score object.
const (
	KeyStrengths        = "strengths"
	KeyImprovementAreas = "improvement_areas"
)

// DimensionScore is one dimension's integer score and its justification.
type DimensionScore struct {
	Score       int    `json:"score" validate:"min=0,max=100"`
	Explanation string `json:"explanation"`
}

// Score is a well-formed candidate evaluation.
type Score struct {
	Dimensions       map[Dimension]DimensionScore `validate:"len=5,dive"`
	Strengths        []string
	ImprovementAreas []string
}

// Get returns the score for d.
func (s Score) Get(d Dimension) DimensionScore { return s.Dimensions[d] }

// ToMap renders the score in its wire shape.
func (s Score) ToMap() map[string]any {
	out := make(map[string]any, len(Dimensions)+2)
	for _, d := range Dimensions {
		ds := s.Dimensions[d]
		out[string(d)] = map[string]any{"score": ds.Score, "explanation": ds.Explanation}
	}
	out[KeyStrengths] = append([]string{}, s.Strengths...)
	out[KeyImprovementAreas] = append([]string{}, s.ImprovementAreas...)
	return out
}

// ScoreStatus tags persisted scoring outcomes.
type ScoreStatus string

const (
	// StatusOK marks a validated score.
	StatusOK ScoreStatus = "OK"
	// StatusError marks a score persisted after exhausting retries.
	StatusError ScoreStatus = "ERROR"
)

// ScoreResult is the outcome of scoring one candidate. Exactly one of the
// two shapes holds: Valid with a non-nil Score, or invalid with the last
// raw response, its best-effort parse (possibly nil) and the last error.
type ScoreResult struct {
	Valid    bool
	Score    *Score
	Raw      string
	Parsed   map[string]any
	Attempts int
	Err      error
}

// Status returns StatusOK for valid results and StatusError otherwise.
func (r ScoreResult) Status() ScoreStatus {
	if r.Valid {
		return StatusOK
	}
	return StatusError
}

// Scoring returns the object persisted for this result: the validated
// score, or whatever the last attempt managed to parse.
func (r ScoreResult) Scoring() map[string]any {
	if r.Valid && r.Score != nil {
		return r.Score.ToMap()
	}
	return r.Parsed
}

// ScoredEntry is one persisted element of the scored collection.
type ScoredEntry struct {
	Folio   string         `json:"folio"`
	Name    string         `json:"nombre"`
	Scoring map[string]any `json:"scoring"`
}

// StatusRecord is one line of the append-only scoring status log.
type StatusRecord struct {
	RunID       string      `json:"run_id"`
	Folio       string      `json:"folio"`
	Name        string      `json:"nombre"`
	Status      ScoreStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	Error       string      `json:"error,omitempty"`
	RawResponse string      `json:"raw_response,omitempty"`
}
