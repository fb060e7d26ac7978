package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// bracePattern spans the first opening brace to the last closing brace.
var bracePattern = regexp.MustCompile(`(?s)\{.*\}`)

var errNotObject = errors.New("response is not a JSON object")

// ParseResponse decodes a judgment response into a JSON object. The text
// is first parsed directly. On failure, code-fence markers and a leading
// "json" tag are stripped and the outermost brace-delimited span is parsed
// instead. Numbers are kept as json.Number so integer literals can be told
// apart from fractions.
func ParseResponse(raw string) (map[string]any, error) {
	obj, err := decodeObject(raw)
	if err == nil {
		return obj, nil
	}

	span := bracePattern.FindString(stripWrapping(raw))
	if span == "" {
		return nil, domain.NewMalformedScoreError(domain.StageParse, "no JSON object found")
	}
	obj, err = decodeObject(span)
	if err != nil {
		return nil, domain.NewMalformedScoreError(domain.StageParse, err.Error())
	}
	return obj, nil
}

func stripWrapping(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	return strings.TrimSpace(s)
}

// decodeObject parses exactly one JSON object and rejects trailing data.
func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// compactJSON renders v for log and error output.
func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(buf.String())
}
