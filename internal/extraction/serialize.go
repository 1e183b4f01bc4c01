package extraction

import (
	"encoding/json"
	"unicode/utf8"
)

// WireInterval is the serialized form of a CharInterval.
type WireInterval struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// WireExtraction is the serialized form of an Extraction.
type WireExtraction struct {
	Class      string         `json:"extraction_class" yaml:"extraction_class"`
	Text       string         `json:"extraction_text" yaml:"extraction_text"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
	Interval   *WireInterval  `json:"char_interval,omitempty" yaml:"char_interval,omitempty"`
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
}

// wireResult is the serialized form of a Result. Chunk errors are mirrored
// into metadata under "errors" so consumers that only read metadata still see
// them.
type wireResult struct {
	Text        string           `json:"text" yaml:"text"`
	Extractions []WireExtraction `json:"extractions" yaml:"extractions"`
	Metadata    map[string]any   `json:"metadata" yaml:"metadata"`
}

// Wire converts the extraction to its serialized form. Interval bounds are
// clamped into [0, textLen]; an interval that is empty or inverted after
// clamping is dropped from the output while the extraction itself is kept.
func (e Extraction) Wire(textLen int) WireExtraction {
	attrs := e.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	w := WireExtraction{
		Class:      e.Class,
		Text:       e.Text,
		Attributes: attrs,
		ID:         e.ID,
	}
	if e.Interval != nil {
		start := clamp(e.Interval.Start, 0, textLen)
		end := clamp(e.Interval.End, 0, textLen)
		if start < end {
			w.Interval = &WireInterval{Start: start, End: end}
		}
	}
	return w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (r *Result) wire() wireResult {
	textLen := utf8.RuneCountInString(r.Text)
	exts := make([]WireExtraction, 0, len(r.Extractions))
	for _, e := range r.Extractions {
		exts = append(exts, e.Wire(textLen))
	}

	meta := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	if len(r.Errors) > 0 {
		meta["errors"] = r.Errors
	}

	return wireResult{Text: r.Text, Extractions: exts, Metadata: meta}
}

// MarshalJSON serializes the result in the wire format.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// MarshalYAML serializes the result in the wire format.
func (r *Result) MarshalYAML() (any, error) {
	return r.wire(), nil
}

// UnmarshalJSON restores a Result from the wire format. Metadata "errors"
// entries are folded back into the Errors field.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	r.Text = w.Text
	r.Extractions = make([]Extraction, 0, len(w.Extractions))
	for _, we := range w.Extractions {
		e := Extraction{
			Class:      we.Class,
			Text:       we.Text,
			Attributes: we.Attributes,
			ID:         we.ID,
		}
		if we.Interval != nil && we.Interval.Start < we.Interval.End {
			e.Interval = &CharInterval{Start: we.Interval.Start, End: we.Interval.End}
		}
		r.Extractions = append(r.Extractions, e)
	}

	r.Metadata = w.Metadata
	r.Errors = nil
	if raw, ok := w.Metadata["errors"]; ok {
		b, err := json.Marshal(raw)
		if err == nil {
			var errs []ChunkError
			if json.Unmarshal(b, &errs) == nil {
				r.Errors = errs
			}
		}
		delete(w.Metadata, "errors")
	}
	return nil
}
