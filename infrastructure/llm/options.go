package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
)

// Option keys understood by every provider.
const (
	OptionModel          = "model"
	OptionMaxTokens      = "max_tokens"
	OptionTemperature    = "temperature"
	OptionSystem         = "system"
	OptionResponseFormat = "response_format"
)

// ResponseFormatJSON requests a bare JSON object from the model.
const ResponseFormatJSON = "json_object"

// DefaultMaxTokens caps generation when the caller sets no limit.
const DefaultMaxTokens = 2048

// Temperature bounds accepted from callers. Providers clamp further.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// RequestOptions is the provider-neutral view of a request option map.
type RequestOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	System      string
	JSONMode    bool
}

// ParseRequestOptions reads the option map, falling back to defaultModel
// and DefaultMaxTokens. Values of the wrong type or out of range are
// ignored. response_format accepts either "json_object" or an object
// {"type": "json_object"}.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	ro := RequestOptions{Model: defaultModel, MaxTokens: DefaultMaxTokens}
	if opts == nil {
		return ro
	}

	if m, ok := opts[OptionModel].(string); ok && m != "" {
		ro.Model = m
	}
	if n, ok := toInt(opts[OptionMaxTokens]); ok && n > 0 {
		ro.MaxTokens = n
	}
	if t, ok := toFloat(opts[OptionTemperature]); ok && t >= MinTemperature && t <= MaxTemperature {
		ro.Temperature = &t
	}
	if s, ok := opts[OptionSystem].(string); ok {
		ro.System = s
	}
	ro.JSONMode = isJSONFormat(opts[OptionResponseFormat])
	return ro
}

func isJSONFormat(v any) bool {
	switch f := v.(type) {
	case string:
		return f == ResponseFormatJSON
	case map[string]string:
		return f["type"] == ResponseFormatJSON
	case map[string]any:
		t, _ := f["type"].(string)
		return t == ResponseFormatJSON
	default:
		return false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if int64(int(n)) != n {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return toInt(i)
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ValidateBaseURL checks that baseURL is an absolute http(s) URL and
// returns it without a trailing slash. An empty URL is valid.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
