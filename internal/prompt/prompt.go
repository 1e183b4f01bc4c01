// Package prompt assembles the text sent to the model for one window.
// Rendering is purely functional; a failure indicates malformed example
// data, not a transient fault.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"textspot/internal/extraction"
)

// Renderer builds prompts from a task instruction and few-shot examples.
type Renderer struct {
	// Instruction describes what to extract, in natural language.
	Instruction string
	// Examples demonstrate the expected output for sample inputs.
	Examples []extraction.Example
	// MaxExamples, when > 0, truncates Examples keeping the most recent.
	MaxExamples int
}

// exampleExtraction is the shape examples are rendered with; intervals are
// never shown to the model.
type exampleExtraction struct {
	Class      string         `json:"extraction_class"`
	Text       string         `json:"extraction_text"`
	Attributes map[string]any `json:"attributes"`
}

// Render produces the prompt for one window of text. The model is instructed
// to reply with a single JSON object {"extractions": [...]} and nothing else.
func (r *Renderer) Render(windowText string) (string, error) {
	examples := r.Examples
	if r.MaxExamples > 0 && len(examples) > r.MaxExamples {
		examples = examples[len(examples)-r.MaxExamples:]
	}

	var parts []string
	parts = append(parts,
		"You are an information extraction assistant.",
		`IMPORTANT: Respond with a single, valid JSON object and nothing else. `+
			`The object MUST have a top-level key "extractions" which is a list.`,
		"Each extraction object must look like:\n"+
			`{"extraction_class": "string", "extraction_text": "string", "attributes": {}}`,
		"\n-- PROMPT DESCRIPTION --",
		r.Instruction,
		"\n-- EXAMPLES --",
	)

	for i, ex := range examples {
		rendered, err := renderExampleJSON(ex)
		if err != nil {
			return "", fmt.Errorf("failed to render example %d: %w", i, err)
		}
		parts = append(parts,
			fmt.Sprintf("Text:\n'''\n%s\n'''", ex.Text),
			"JSON Output:\n"+rendered,
		)
	}

	parts = append(parts,
		"\n-- TASK --",
		`If there are no extractions, return {"extractions": []}.`,
		fmt.Sprintf("Text:\n'''\n%s\n'''", windowText),
		"JSON Output:",
	)

	return strings.Join(parts, "\n\n"), nil
}

func renderExampleJSON(ex extraction.Example) (string, error) {
	exts := make([]exampleExtraction, 0, len(ex.Extractions))
	for _, e := range ex.Extractions {
		attrs := e.Attributes
		if attrs == nil {
			attrs = map[string]any{}
		}
		exts = append(exts, exampleExtraction{Class: e.Class, Text: e.Text, Attributes: attrs})
	}

	b, err := json.MarshalIndent(map[string]any{"extractions": exts}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
