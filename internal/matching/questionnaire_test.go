package matching

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-judicatura/internal/domain"
)

const delta = 1e-9

func fiveOptions(affinity string) []Option {
	opts := make([]Option, 5)
	for i := range opts {
		opts[i] = Option{Text: string(rune('a' + i)), Affinity: affinity}
	}
	return opts
}

func assertVector(t *testing.T, want, got Vector) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "component %s", domain.Dimensions[i])
	}
}

func TestUserVector(t *testing.T) {
	questions := []Question{
		{ID: "1", Type: QuestionSingle, Dimension: "CT", Options: fiveOptions("CT")},
		{ID: "2", Type: QuestionRanking},
		{ID: "3", Type: QuestionSingle, Dimension: CategoryTradeoff, Options: []Option{
			{Text: "orden", Affinity: "CR"}, {Text: "personas", Affinity: "SS"},
		}},
		{ID: "4", Type: QuestionSingle, Dimension: CategoryFilter, Options: []Option{
			{Text: "no", Affinity: "IE"},
		}},
		{ID: "5", Type: QuestionSingle, Dimension: "EJ", Options: []Option{{Text: "solo", Affinity: "EJ"}}},
	}

	tests := []struct {
		name        string
		answers     []Answer
		wantPercent Vector
		wantUnit    *Vector
	}{
		{
			name:        "highest option of a dimensional question",
			answers:     []Answer{{QuestionID: "1", AnswerID: 4}},
			wantPercent: Vector{100, 0, 0, 0, 0},
			wantUnit:    &Vector{1, 0, 0, 0, 0},
		},
		{
			name:        "ranking awards descending points",
			answers:     []Answer{{QuestionID: "2", RankingOrder: []int{4, 3, 2, 1, 0}}},
			wantPercent: Vector{0, 10, 20, 30, 40},
		},
		{
			name:        "tradeoff moves points and shifts non-negative",
			answers:     []Answer{{QuestionID: "3", AnswerID: 0}},
			wantPercent: Vector{20, 20, 20, 40, 0},
		},
		{
			name:        "filter penalizes the affinity",
			answers:     []Answer{{QuestionID: "4", AnswerID: 0}},
			wantPercent: Vector{25, 0, 25, 25, 25},
		},
		{
			name:        "single option scores fifty",
			answers:     []Answer{{QuestionID: "5", AnswerID: 0}},
			wantPercent: Vector{0, 0, 100, 0, 0},
			wantUnit:    &Vector{0, 0, 1, 0, 0},
		},
		{
			name:        "no answers split evenly",
			answers:     nil,
			wantPercent: Vector{20, 20, 20, 20, 20},
			wantUnit:    &Vector{},
		},
		{
			name: "unknown question and bad option are ignored",
			answers: []Answer{
				{QuestionID: "99", AnswerID: 0},
				{QuestionID: "1", AnswerID: 7},
				{QuestionID: "1", AnswerID: -1},
			},
			wantPercent: Vector{20, 20, 20, 20, 20},
			wantUnit:    &Vector{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserVector(tt.answers, questions)
			assertVector(t, tt.wantPercent, got.Percentages)
			if tt.wantUnit != nil {
				assertVector(t, *tt.wantUnit, got.Vector)
			}
		})
	}
}

// TestUserVector_AveragesByContribution tests that repeated answers to one
// dimension are averaged.
func TestUserVector_AveragesByContribution(t *testing.T) {
	questions := []Question{
		{ID: "a", Type: QuestionSingle, Dimension: "SS", Options: fiveOptions("SS")},
		{ID: "b", Type: QuestionSingle, Dimension: "CT", Options: fiveOptions("CT")},
	}
	answers := []Answer{
		{QuestionID: "a", AnswerID: 4},
		{QuestionID: "a", AnswerID: 2},
		{QuestionID: "b", AnswerID: 3},
	}

	got := UserVector(answers, questions)

	// SS mean 75, CT 75
	assert.InDelta(t, got.Vector.Get(domain.DimensionSS), got.Vector.Get(domain.DimensionCT), delta)
	assert.InDelta(t, 1/math.Sqrt2, got.Vector.Get(domain.DimensionSS), delta)
	assert.InDelta(t, 50, got.Percentages.Get(domain.DimensionSS), delta)
}

// TestOptionScore_DuplicateText tests that duplicated option text scores
// at the first position.
func TestOptionScore_DuplicateText(t *testing.T) {
	opts := []Option{{Text: "x"}, {Text: "y"}, {Text: "x"}}
	assert.InDelta(t, 0, optionScore(opts, opts[2]), delta)
	assert.InDelta(t, 50, optionScore(opts, opts[1]), delta)
}

// TestQuestionnaireJSON tests decoding of numeric and textual ids.
func TestQuestionnaireJSON(t *testing.T) {
	var qs []Question
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": 3, "type": "single", "dimension": "CT", "options": [{"text": "a", "affinity": "CT"}]},
		{"id": "r1", "type": "ranking"}
	]`), &qs))
	require.Len(t, qs, 2)
	assert.Equal(t, QuestionID("3"), qs[0].ID)
	assert.Equal(t, QuestionID("r1"), qs[1].ID)

	var answers []Answer
	require.NoError(t, json.Unmarshal([]byte(`[{"questionId": 3, "answerId": 0}, {"questionId": "r1", "rankingOrder": [0, 1]}]`), &answers))
	assert.Equal(t, QuestionID("3"), answers[0].QuestionID)
	assert.Equal(t, []int{0, 1}, answers[1].RankingOrder)

	var bad QuestionID
	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &bad))
}

func TestUserVectorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	questions := []Question{
		{ID: "1", Type: QuestionSingle, Dimension: "CT", Options: fiveOptions("CT")},
		{ID: "2", Type: QuestionSingle, Dimension: "IE", Options: fiveOptions("IE")},
		{ID: "3", Type: QuestionSingle, Dimension: CategoryTradeoff, Options: []Option{{Text: "a", Affinity: "CR"}, {Text: "b", Affinity: "SS"}}},
		{ID: "4", Type: QuestionSingle, Dimension: CategorySacrifice, Options: fiveOptions("EJ")},
		{ID: "5", Type: QuestionRanking},
	}
	ids := []QuestionID{"1", "2", "3", "4", "5"}

	genAnswers := gen.SliceOf(gen.Struct(reflect.TypeOf(Answer{}), map[string]gopter.Gen{
		"QuestionID":   gen.IntRange(0, 4).Map(func(i int) QuestionID { return ids[i] }),
		"AnswerID":     gen.IntRange(0, 4),
		"RankingOrder": gen.SliceOfN(5, gen.IntRange(0, 4)),
	}))

	properties.Property("percentages sum to 100", prop.ForAll(
		func(answers []Answer) bool {
			p := UserVector(answers, questions)
			var sum float64
			for _, x := range p.Percentages {
				sum += x
			}
			return math.Abs(sum-100) < 1e-6
		},
		genAnswers,
	))

	properties.Property("vector is unit length or zero with no negative component", prop.ForAll(
		func(answers []Answer) bool {
			v := UserVector(answers, questions).Vector
			for _, x := range v {
				if x < -delta {
					return false
				}
			}
			n := v.Norm()
			return n == 0 || math.Abs(n-1) < 1e-9
		},
		genAnswers,
	))

	properties.TestingRun(t)
}
