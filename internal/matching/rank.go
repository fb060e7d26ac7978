package matching

import (
	"encoding/json"
	"sort"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// DefaultLimit is the number of matches returned when no limit is given.
const DefaultLimit = 10

// Match is one ranked candidate.
type Match struct {
	Folio      string  `json:"folio"`
	Name       string  `json:"nombre"`
	Similarity float64 `json:"similarity"`
	Scores     Vector  `json:"scores"`
}

// Rank orders scored candidates by cosine similarity to the user vector,
// highest first, keeping input order among ties. Entries without an
// integer score for every dimension are skipped. A non-positive limit
// uses DefaultLimit.
func Rank(user Vector, entries []domain.ScoredEntry, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	u := user.Unit()

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		scores, ok := ScoresOf(e.Scoring)
		if !ok {
			continue
		}
		var cand Vector
		for i, s := range scores {
			cand[i] = s / 100
		}
		matches = append(matches, Match{
			Folio:      e.Folio,
			Name:       e.Name,
			Similarity: u.Dot(cand.Unit()),
			Scores:     scores,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ScoresOf extracts the five dimension scores from a scoring object, as
// persisted in the scored collection. Scores must be integral numbers in
// [0, 100].
func ScoresOf(scoring map[string]any) (Vector, bool) {
	var v Vector
	for i, d := range domain.Dimensions {
		dim, ok := scoring[string(d)].(map[string]any)
		if !ok {
			return Vector{}, false
		}
		n, ok := integral(dim["score"])
		if !ok || n < 0 || n > 100 {
			return Vector{}, false
		}
		v[i] = n
	}
	return v, true
}

func integral(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, n == float64(int64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return float64(i), true
	default:
		return 0, false
	}
}
