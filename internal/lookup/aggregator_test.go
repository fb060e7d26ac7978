package lookup

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-judicatura/internal/domain"
)

func associated(folio, name string, circuit, dist int64, districtName, entity string) domain.AssociatedCandidate {
	c := domain.Candidate{Folio: domain.StringPtr(folio)}
	if name != "" {
		c.Name = domain.StringPtr(name)
	}
	return domain.AssociatedCandidate{
		Candidate: c,
		Association: domain.Association{
			CircuitID:    circuit,
			DistrictID:   dist,
			DistrictName: districtName,
			EntityName:   entity,
			Tier:         domain.TierExact,
		},
	}
}

func unmatched(folio, name string) domain.AssociatedCandidate {
	return domain.AssociatedCandidate{Candidate: domain.Candidate{
		Folio: domain.StringPtr(folio), Name: domain.StringPtr(name),
	}}
}

// TestAggregate_GroupsAndSorts tests that rows are grouped by district key
// and ordered by key with the null group first.
func TestAggregate_GroupsAndSorts(t *testing.T) {
	// Given candidates spread over two districts plus one unmatched
	cands := []domain.AssociatedCandidate{
		associated("3", "Carla", 5, 2, "Hermosillo Sur", "SONORA"),
		associated("1", "Ana", 3, 1, "Guadalajara", "JALISCO"),
		unmatched("9", "Zoe"),
		associated("2", "Beto", 5, 2, "Hermosillo Sur", "SONORA"),
	}

	// When aggregating
	rows := NewAggregator().Aggregate(cands)

	// Then one row per key is returned in key order
	require.Len(t, rows, 3)

	assert.Nil(t, rows[0].CircuitID, "null group sorts first")
	assert.Equal(t, 1, rows[0].Count)
	assert.Equal(t, "Zoe", rows[0].Summary)

	assert.Equal(t, int64(3), rows[1].CircuitID)
	assert.Equal(t, "Ana", rows[1].Summary)

	assert.Equal(t, int64(5), rows[2].CircuitID)
	assert.Equal(t, int64(2), rows[2].DistrictID)
	assert.Equal(t, "Hermosillo Sur", rows[2].DistrictName)
	assert.Equal(t, "SONORA", rows[2].EntityName)
	assert.Equal(t, 2, rows[2].Count)
	assert.Equal(t, "Carla, Beto", rows[2].Summary, "names keep input order")
}

// TestAggregate_DecodedIdentifiersOrderNumerically tests that identifiers
// read back as json.Number sort as numbers, not text.
func TestAggregate_DecodedIdentifiersOrderNumerically(t *testing.T) {
	// Given associations decoded with UseNumber
	var cands []domain.AssociatedCandidate
	for _, pair := range [][2]string{{"10", "1"}, {"2", "1"}, {"2", "10"}, {"2", "3"}} {
		c := associated(pair[0]+"-"+pair[1], "", 0, 0, "X", "Y")
		c.CircuitID = json.Number(pair[0])
		c.DistrictID = json.Number(pair[1])
		cands = append(cands, c)
	}

	// When aggregating
	rows := NewAggregator().Aggregate(cands)

	// Then keys are int64 in numeric order
	require.Len(t, rows, 4)
	got := make([][2]any, 0, len(rows))
	for _, r := range rows {
		got = append(got, [2]any{r.CircuitID, r.DistrictID})
	}
	assert.Equal(t, [][2]any{
		{int64(2), int64(1)}, {int64(2), int64(3)}, {int64(2), int64(10)}, {int64(10), int64(1)},
	}, got)
}

// TestAggregate_Summary tests the five-name summary and its ellipsis.
func TestAggregate_Summary(t *testing.T) {
	tests := []struct {
		name  string
		count int
		opts  []Option
		want  string
	}{
		{name: "exactly five names", count: 5, want: "N0, N1, N2, N3, N4"},
		{name: "six names truncated", count: 6, want: "N0, N1, N2, N3, N4..."},
		{name: "custom limit", count: 3, opts: []Option{WithSummaryLimit(2)}, want: "N0, N1..."},
		{name: "non-positive limit ignored", count: 2, opts: []Option{WithSummaryLimit(0)}, want: "N0, N1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cands []domain.AssociatedCandidate
			for i := 0; i < tt.count; i++ {
				cands = append(cands, associated(fmt.Sprint(i), fmt.Sprintf("N%d", i), 1, 1, "Centro", "CDMX"))
			}

			rows := NewAggregator(tt.opts...).Aggregate(cands)

			require.Len(t, rows, 1)
			assert.Equal(t, tt.count, rows[0].Count)
			assert.Equal(t, tt.want, rows[0].Summary)
		})
	}
}

// TestAggregate_NameFallsBackToFolio tests that nameless candidates are
// listed by folio.
func TestAggregate_NameFallsBackToFolio(t *testing.T) {
	rows := NewAggregator().Aggregate([]domain.AssociatedCandidate{
		associated("F-7", "", 1, 1, "Centro", "CDMX"),
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "F-7", rows[0].Summary)
}

// TestAggregate_Empty tests that no candidates produce no rows.
func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, NewAggregator().Aggregate(nil))
}

// TestAggregate_Deterministic tests that permuting groups does not change
// the row order.
func TestAggregate_Deterministic(t *testing.T) {
	a := associated("1", "A", 2, 1, "X", "E")
	b := associated("2", "B", 1, 3, "Y", "E")
	c := unmatched("3", "C")

	first := NewAggregator().Aggregate([]domain.AssociatedCandidate{a, b, c})
	second := NewAggregator().Aggregate([]domain.AssociatedCandidate{c, b, a})

	assert.Equal(t, first, second)
}

func TestAggregateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	agg := NewAggregator()

	build := func(keys []int) []domain.AssociatedCandidate {
		out := make([]domain.AssociatedCandidate, 0, len(keys))
		for i, k := range keys {
			if k == 0 {
				out = append(out, unmatched(fmt.Sprint(i), fmt.Sprintf("U%d", i)))
				continue
			}
			out = append(out, associated(fmt.Sprint(i), fmt.Sprintf("C%d", i), int64(k%3), int64(k), "D", "E"))
		}
		return out
	}

	properties.Property("row counts sum to the number of candidates", prop.ForAll(
		func(keys []int) bool {
			total := 0
			for _, r := range agg.Aggregate(build(keys)) {
				total += r.Count
			}
			return total == len(keys)
		},
		gen.SliceOf(gen.IntRange(0, 6)),
	))

	properties.Property("every row key is distinct", prop.ForAll(
		func(keys []int) bool {
			seen := make(map[domain.LookupKey]bool)
			for _, r := range agg.Aggregate(build(keys)) {
				k := domain.LookupKey{
					CircuitID: r.CircuitID, DistrictID: r.DistrictID,
					DistrictName: r.DistrictName, EntityName: r.EntityName,
				}
				if seen[k] {
					return false
				}
				seen[k] = true
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 6)),
	))

	properties.TestingRun(t)
}
