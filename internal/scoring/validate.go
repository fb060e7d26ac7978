package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ahrav/go-judicatura/internal/domain"
)

const scoreSchemaURL = "https://judicatura.local/schemas/score.schema.json"

// scoreSchema is the structural contract of a judgment response. List
// lengths are requested in the rubric but deliberately not enforced here.
const scoreSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["CT", "IE", "EJ", "CR", "SS", "strengths", "improvement_areas"],
  "properties": {
    "CT": {"$ref": "#/$defs/dimension"},
    "IE": {"$ref": "#/$defs/dimension"},
    "EJ": {"$ref": "#/$defs/dimension"},
    "CR": {"$ref": "#/$defs/dimension"},
    "SS": {"$ref": "#/$defs/dimension"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "improvement_areas": {"type": "array", "items": {"type": "string"}}
  },
  "$defs": {
    "dimension": {
      "type": "object",
      "required": ["score"],
      "properties": {
        "score": {"type": "integer", "minimum": 0, "maximum": 100}
      }
    }
  }
}`

// SchemaValidator checks parsed responses and converts them to Scores.
type SchemaValidator struct {
	schema   *jsonschema.Schema
	validate *validator.Validate
}

// NewSchemaValidator compiles the score schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(scoreSchemaURL, strings.NewReader(scoreSchema)); err != nil {
		return nil, fmt.Errorf("failed to load score schema: %w", err)
	}
	schema, err := c.Compile(scoreSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile score schema: %w", err)
	}
	return &SchemaValidator{schema: schema, validate: validator.New()}, nil
}

// Validate returns the Score for a well-formed response object or a
// *domain.MalformedScoreError describing the first violation.
func (v *SchemaValidator) Validate(obj map[string]any) (*domain.Score, error) {
	if obj == nil {
		return nil, domain.NewMalformedScoreError(domain.StageSchema, "response is not a mapping")
	}
	if err := v.schema.Validate(obj); err != nil {
		return nil, domain.NewMalformedScoreError(domain.StageSchema, schemaDetail(err))
	}

	score := &domain.Score{Dimensions: make(map[domain.Dimension]domain.DimensionScore, len(domain.Dimensions))}
	for _, d := range domain.Dimensions {
		dim, _ := obj[string(d)].(map[string]any)
		n, err := integerLiteral(dim["score"])
		if err != nil {
			return nil, domain.NewMalformedScoreError(domain.StageSchema, fmt.Sprintf("%s.score: %v", d, err))
		}
		score.Dimensions[d] = domain.DimensionScore{Score: n, Explanation: explanation(dim["explanation"])}
	}
	score.Strengths = stringList(obj[domain.KeyStrengths])
	score.ImprovementAreas = stringList(obj[domain.KeyImprovementAreas])

	if err := v.validate.Struct(score); err != nil {
		return nil, domain.NewMalformedScoreError(domain.StageSchema, err.Error())
	}
	return score, nil
}

// integerLiteral accepts only integer JSON literals. A value such as 80.0
// satisfies the schema's integer type but is not written as an integer.
func integerLiteral(v any) (int, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if strings.ContainsAny(num.String(), ".eE") {
		return 0, fmt.Errorf("expected integer literal, got %s", num)
	}
	n, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("invalid integer %s: %w", num, err)
	}
	return int(n), nil
}

func explanation(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	default:
		return compactJSON(e)
	}
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func schemaDetail(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, leaf.Message)
	}
	return err.Error()
}
