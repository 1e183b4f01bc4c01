// Package extraction defines the data model shared by the whole pipeline:
// extractions, character intervals, few-shot examples, and annotated results.
//
// All character offsets are rune offsets into the document text, so an
// interval [start, end) always selects whole Unicode code points.
package extraction

import (
	"fmt"
	"unicode/utf8"
)

// CharInterval is a half-open, 0-indexed character span in the source text.
type CharInterval struct {
	Start int
	End   int
}

// NewCharInterval validates and constructs a CharInterval. Construction with
// start >= end or negative bounds is a hard failure; clamping only happens at
// serialization boundaries.
func NewCharInterval(start, end int) (CharInterval, error) {
	if start < 0 || end < 0 {
		return CharInterval{}, fmt.Errorf("char interval bounds must be non-negative, got [%d, %d)", start, end)
	}
	if start >= end {
		return CharInterval{}, fmt.Errorf("char interval start must be less than end, got [%d, %d)", start, end)
	}
	return CharInterval{Start: start, End: end}, nil
}

// Len returns the number of characters covered by the interval.
func (ci CharInterval) Len() int {
	return ci.End - ci.Start
}

// Extraction is a typed, attributed span claimed to exist in the source text.
// A nil Interval means the extraction was recognized but could not be located.
type Extraction struct {
	Class      string
	Text       string
	Attributes map[string]any
	Interval   *CharInterval
	ID         string
}

// WithInterval returns a copy of the extraction with the interval set.
// Extractions are treated as values; alignment never mutates its input.
func (e Extraction) WithInterval(ci CharInterval) Extraction {
	e.Interval = &ci
	return e
}

// Shifted returns a copy with the interval offset by delta characters.
// Used to translate window-local offsets into document-global offsets.
// Extractions without an interval are returned unchanged.
func (e Extraction) Shifted(delta int) Extraction {
	if e.Interval == nil {
		return e
	}
	shifted := CharInterval{Start: e.Interval.Start + delta, End: e.Interval.End + delta}
	e.Interval = &shifted
	return e
}

// Document is an immutable source text plus an identifier. All offsets in a
// Result refer to Document.Text.
type Document struct {
	ID   string
	Text string
}

// Len returns the document length in characters.
func (d Document) Len() int {
	return utf8.RuneCountInString(d.Text)
}

// Example is a few-shot demonstration: an input text and its correct
// extractions. Examples are read-only inputs to prompt rendering.
type Example struct {
	Text        string
	Extractions []Extraction
}

// ChunkError records a per-window failure surfaced in collect mode.
type ChunkError struct {
	ChunkIndex int    `json:"chunk_index"`
	Message    string `json:"error"`
}

// Result is the final output of a pipeline run: the original text, the merged
// extractions, run metadata, and any per-chunk errors.
//
// Extraction order reflects chunk completion order, not document position.
// Callers that need positional order must sort by interval start explicitly.
type Result struct {
	Text        string
	Extractions []Extraction
	Metadata    map[string]any
	Errors      []ChunkError
}
