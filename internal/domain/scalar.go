package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Scalar is a leaf value read from a feed record or a reference table cell.
// Decoders in this module only ever produce nil, string, int64, float64 or
// bool, so two Scalars compare with == without coercion: int64(7) and
// "7" are different values.
type Scalar = any

// NormalizeScalar converts decoder output into the Scalar value set.
// json.Number literals without a fraction or exponent become int64, other
// numbers become float64. Values outside the set are returned unchanged.
func NormalizeScalar(v any) Scalar {
	switch n := v.(type) {
	case json.Number:
		s := n.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := n.Int64(); err == nil {
				return i
			}
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return s
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// IsScalar reports whether v belongs to the Scalar value set and is
// therefore safe to use as a map key.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, int64, float64, bool:
		return true
	}
	return false
}

// InferScalar parses a tabular cell. Empty cells are nil, integral text is
// int64, other numeric text is float64 and anything else stays a string.
func InferScalar(cell string) Scalar {
	if cell == "" {
		return nil
	}
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		switch {
		case math.IsNaN(f):
			return nil
		case math.IsInf(f, 0):
			return cell
		}
		return f
	}
	return cell
}

// FormatScalar renders a Scalar for tabular exports and string keys.
// nil renders as the empty string.
func FormatScalar(v Scalar) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// scalarRank orders kinds for CompareScalars: nil, bool, numbers, strings.
func scalarRank(v Scalar) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// CompareScalars imposes a total order over Scalars so grouped outputs can
// be sorted deterministically. It returns -1, 0 or +1.
func CompareScalars(a, b Scalar) int {
	ra, rb := scalarRank(a), scalarRank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpInt64(x, y)
		}
		if c := cmpFloat(float64(x), b.(float64)); c != 0 {
			return c
		}
		return -1
	case float64:
		if y, ok := b.(float64); ok {
			return cmpFloat(x, y)
		}
		if c := cmpFloat(x, float64(b.(int64))); c != 0 {
			return c
		}
		return 1
	case string:
		return strings.Compare(x, b.(string))
	default:
		return strings.Compare(FormatScalar(a), FormatScalar(b))
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
