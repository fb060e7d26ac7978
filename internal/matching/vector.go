// Package matching ranks scored candidates against a voter's affinity
// profile derived from questionnaire answers.
package matching

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// Vector holds one value per evaluation dimension in domain.Dimensions order.
type Vector [5]float64

// dimIndex maps a dimension key to its Vector position.
var dimIndex = map[domain.Dimension]int{
	domain.DimensionCT: 0,
	domain.DimensionIE: 1,
	domain.DimensionEJ: 2,
	domain.DimensionCR: 3,
	domain.DimensionSS: 4,
}

// Get returns the value for d.
func (v Vector) Get(d domain.Dimension) float64 {
	i, ok := dimIndex[d]
	if !ok {
		return 0
	}
	return v[i]
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Unit returns v scaled to length one. The zero vector is returned as is.
func (v Vector) Unit() Vector {
	n := v.Norm()
	if n == 0 {
		return v
	}
	var out Vector
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Dot returns the dot product of v and w.
func (v Vector) Dot(w Vector) float64 {
	var sum float64
	for i := range v {
		sum += v[i] * w[i]
	}
	return sum
}

// MarshalJSON renders v as an object keyed by dimension.
func (v Vector) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(v))
	for i, d := range domain.Dimensions {
		m[string(d)] = v[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads an object keyed by dimension. Unknown keys are an error.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Vector
	for k, x := range m {
		i, ok := dimIndex[domain.Dimension(k)]
		if !ok {
			return fmt.Errorf("unknown dimension %q", k)
		}
		out[i] = x
	}
	*v = out
	return nil
}
