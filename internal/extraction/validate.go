package extraction

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema is the canonical shape every normalized candidate must satisfy
// before it becomes an Extraction.
const recordSchema = `{
	"type": "object",
	"properties": {
		"extraction_class": {"type": "string", "minLength": 1},
		"extraction_text": {"type": "string", "minLength": 1},
		"attributes": {"type": "object"}
	},
	"required": ["extraction_class", "extraction_text"]
}`

var compiledRecordSchema = jsonschema.MustCompileString("record.json", recordSchema)

// Validator converts normalized {class, text, attributes} candidates into
// Extractions, rejecting malformed ones. An optional attribute schema lets
// callers enforce task-specific structure on extraction attributes.
type Validator struct {
	attrSchema *jsonschema.Schema
	logger     *slog.Logger
}

// NewValidator creates a validator. A nil logger falls back to slog.Default().
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// SetAttributeSchema compiles and installs a JSON schema applied to each
// extraction's attributes map.
func (v *Validator) SetAttributeSchema(raw json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("attributes.json", strings.NewReader(string(raw))); err != nil {
		return fmt.Errorf("failed to load attribute schema: %w", err)
	}
	schema, err := compiler.Compile("attributes.json")
	if err != nil {
		return fmt.Errorf("failed to compile attribute schema: %w", err)
	}
	v.attrSchema = schema
	return nil
}

// Validate checks one candidate and returns the resulting Extraction.
// Class and text are trimmed before validation; nil attributes become an
// empty map.
func (v *Validator) Validate(class, text string, attrs map[string]any) (Extraction, error) {
	class = strings.TrimSpace(class)
	text = strings.TrimSpace(text)
	if attrs == nil {
		attrs = map[string]any{}
	}

	instance := map[string]any{
		"extraction_class": class,
		"extraction_text":  text,
		"attributes":       attrs,
	}
	if err := compiledRecordSchema.Validate(instance); err != nil {
		return Extraction{}, fmt.Errorf("invalid extraction record: %w", err)
	}

	if v.attrSchema != nil {
		if err := v.attrSchema.Validate(normalizeForSchema(attrs)); err != nil {
			return Extraction{}, fmt.Errorf("attributes do not match schema: %w", err)
		}
	}

	return Extraction{Class: class, Text: text, Attributes: attrs}, nil
}

// Apply validates a batch of candidates, dropping rejected ones with a logged
// warning. Rejections are never fatal to the chunk.
func (v *Validator) Apply(candidates []Candidate) []Extraction {
	out := make([]Extraction, 0, len(candidates))
	for i, c := range candidates {
		ext, err := v.Validate(c.Class, c.Text, c.Attributes)
		if err != nil {
			v.logger.Warn("dropping invalid extraction candidate", "index", i, "reason", err)
			continue
		}
		out = append(out, ext)
	}
	return out
}

// Candidate is an unvalidated normalized record, as produced by the output
// normalizer.
type Candidate struct {
	Class      string
	Text       string
	Attributes map[string]any
}

// normalizeForSchema round-trips a value through JSON so the schema validator
// sees plain decoded types (float64 numbers, map[string]any objects).
func normalizeForSchema(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
