package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// preferredListKeys are checked, in order, when a feed payload is an object.
var preferredListKeys = []string{"candidatos", "items", "data", "results"}

// ErrUnsupportedPayload indicates a feed payload that is neither an array
// nor an object.
var ErrUnsupportedPayload = errors.New("unsupported feed payload")

// DecodeFeed reads one JSON feed payload and extracts its records.
// Numbers are kept as json.Number so identifiers keep their literal form.
func DecodeFeed(r io.Reader) ([]domain.RawRecord, error) {
	var payload json.RawMessage
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return ExtractRecords(payload)
}

// ExtractRecords locates the record list inside a feed payload. An array
// is used as-is. For an object, the first of the preferred keys holding an
// array wins, then the first non-empty array value in document order.
// Elements that are not objects are skipped.
func ExtractRecords(payload []byte) ([]domain.RawRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedPayload)
	}

	switch trimmed[0] {
	case '[':
		return decodeRecordArray(trimmed)
	case '{':
		keys, values, err := orderedObject(trimmed)
		if err != nil {
			return nil, err
		}
		for _, k := range preferredListKeys {
			if v, ok := values[k]; ok && isArray(v) {
				return decodeRecordArray(v)
			}
		}
		for _, k := range keys {
			if v := values[k]; isArray(v) && !isEmptyArray(v) {
				return decodeRecordArray(v)
			}
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: starts with %q", ErrUnsupportedPayload, trimmed[0])
	}
}

// IndexRaw indexes records by the string form of their internal id,
// falling back to "id". Later duplicates do not replace earlier ones.
func IndexRaw(records []domain.RawRecord) map[string]domain.RawRecord {
	idx := make(map[string]domain.RawRecord, len(records))
	for _, r := range records {
		var key string
		for _, k := range []string{"idCandidato", "id"} {
			if v, ok := r[k]; ok && v != nil {
				key = domain.FormatScalar(v)
				break
			}
		}
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = r
		}
	}
	return idx
}

func decodeRecordArray(b []byte) ([]domain.RawRecord, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(b, &elems); err != nil {
		return nil, fmt.Errorf("decode record array: %w", err)
	}

	out := make([]domain.RawRecord, 0, len(elems))
	for i, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(e))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		out = append(out, domain.RawRecord(rec))
	}
	return out, nil
}

// orderedObject decodes the top level of a JSON object, preserving key
// order. Values are left undecoded.
func orderedObject(b []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("decode feed object: %w", err)
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode feed object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("decode feed object: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("decode feed value %q: %w", key, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = raw
	}
	return keys, values, nil
}

func isArray(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) > 0 && t[0] == '['
}

func isEmptyArray(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	if len(t) < 2 {
		return true
	}
	return len(bytes.TrimSpace(t[1:len(t)-1])) == 0
}
