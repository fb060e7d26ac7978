package matching

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// QuestionType selects how an answer is scored.
type QuestionType string

// Supported question types.
const (
	QuestionSingle  QuestionType = "single"
	QuestionRanking QuestionType = "ranking"
)

// Non-dimensional question categories for single-choice questions.
const (
	CategoryTradeoff   = "TRADEOFF"
	CategoryFilter     = "FILTRO"
	CategorySacrifice  = "SACRIFICIO"
	CategorySacrifice2 = "SACRIFICIO2"
)

const (
	tradeoffShift       = 30.0
	penaltyPoints       = 50.0
	rankingTopScore     = 100.0
	rankingStep         = 25.0
	singleOptionDefault = 50.0
)

// QuestionID identifies a question. It accepts JSON numbers or strings.
type QuestionID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a string or number: %w", err)
	}
	*id = QuestionID(n.String())
	return nil
}

// Option is one selectable answer.
type Option struct {
	Text     string `json:"text"`
	Affinity string `json:"affinity"`
}

// Question is one questionnaire item. Dimension is either an evaluation
// dimension key or one of the non-dimensional categories.
type Question struct {
	ID        QuestionID   `json:"id"`
	Type      QuestionType `json:"type"`
	Dimension string       `json:"dimension"`
	Text      string       `json:"text,omitempty"`
	Options   []Option     `json:"options"`
}

// Answer is a voter's response. AnswerID indexes Options for single
// questions; RankingOrder lists dimension indexes from most to least
// preferred for ranking questions.
type Answer struct {
	QuestionID   QuestionID `json:"questionId"`
	AnswerID     int        `json:"answerId"`
	RankingOrder []int      `json:"rankingOrder,omitempty"`
}

// UserProfile is a voter's affinity over the evaluation dimensions.
type UserProfile struct {
	Vector      Vector `json:"normalized_vector"`
	Percentages Vector `json:"relative_percentages"`
}

// accumulator sums contributions per dimension.
type accumulator struct {
	sum    Vector
	counts [5]int
}

func (a *accumulator) add(d domain.Dimension, x float64) {
	i, ok := dimIndex[d]
	if !ok {
		return
	}
	a.sum[i] += x
	a.counts[i]++
}

func (a *accumulator) mean() Vector {
	var out Vector
	for i := range a.sum {
		if a.counts[i] > 0 {
			out[i] = a.sum[i] / float64(a.counts[i])
		} else {
			out[i] = a.sum[i]
		}
	}
	return out
}

// UserVector derives a voter profile from answers. Answers to unknown
// questions and out-of-range options are ignored.
func UserVector(answers []Answer, questions []Question) UserProfile {
	byID := make(map[QuestionID]Question, len(questions))
	for _, q := range questions {
		if _, dup := byID[q.ID]; !dup {
			byID[q.ID] = q
		}
	}

	var acc accumulator
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		switch q.Type {
		case QuestionSingle:
			if a.AnswerID < 0 || a.AnswerID >= len(q.Options) {
				continue
			}
			scoreSingle(&acc, q, q.Options[a.AnswerID])
		case QuestionRanking:
			scoreRanking(&acc, a.RankingOrder)
		}
	}

	unit := shiftNonNegative(acc.mean()).Unit()
	return UserProfile{Vector: unit, Percentages: RelativePercentages(unit)}
}

func scoreSingle(acc *accumulator, q Question, opt Option) {
	affinity := domain.Dimension(opt.Affinity)
	switch q.Dimension {
	case string(domain.DimensionCT), string(domain.DimensionIE), string(domain.DimensionEJ),
		string(domain.DimensionCR), string(domain.DimensionSS):
		if opt.Affinity != "" {
			acc.add(affinity, optionScore(q.Options, opt))
		}
	case CategoryTradeoff:
		switch affinity {
		case domain.DimensionCR:
			acc.add(domain.DimensionCR, tradeoffShift)
			acc.add(domain.DimensionSS, -tradeoffShift)
		case domain.DimensionSS:
			acc.add(domain.DimensionSS, tradeoffShift)
			acc.add(domain.DimensionCR, -tradeoffShift)
		}
	case CategoryFilter, CategorySacrifice, CategorySacrifice2:
		if opt.Affinity != "" {
			acc.add(affinity, -penaltyPoints)
		}
	}
}

// optionScore spreads options evenly over [0, 100] by position. The
// position is that of the first option with the same text.
func optionScore(options []Option, selected Option) float64 {
	if len(options) <= 1 {
		return singleOptionDefault
	}
	idx := -1
	for i, o := range options {
		if o.Text == selected.Text {
			idx = i
			break
		}
	}
	return float64(idx) / float64(len(options)-1) * 100
}

func scoreRanking(acc *accumulator, order []int) {
	for pos, dimIdx := range order {
		if dimIdx < 0 || dimIdx >= len(domain.Dimensions) {
			continue
		}
		acc.add(domain.Dimensions[dimIdx], rankingTopScore-float64(pos)*rankingStep)
	}
}

// shiftNonNegative adds |min| to every component when min is negative.
func shiftNonNegative(v Vector) Vector {
	lowest := v[0]
	for _, x := range v[1:] {
		lowest = min(lowest, x)
	}
	if lowest >= 0 {
		return v
	}
	for i := range v {
		v[i] -= lowest
	}
	return v
}

// RelativePercentages expresses the positive part of each component as a
// share of the total. All-zero input yields an even split.
func RelativePercentages(v Vector) Vector {
	var total float64
	for _, x := range v {
		total += max(0, x)
	}
	var out Vector
	if total == 0 {
		for i := range out {
			out[i] = 100 / float64(len(out))
		}
		return out
	}
	for i, x := range v {
		out[i] = max(0, x) / total * 100
	}
	return out
}
