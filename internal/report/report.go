// Package report renders extraction results as a standalone HTML page with
// class-colored highlights. It consumes results keyed by document and model
// identifiers taken from run metadata.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"textspot/internal/extraction"
)

// palette cycles across extraction classes for highlight colors.
var palette = []string{
	"#D2E3FC", "#C8E6C9", "#FEF0C3", "#F9DEDC", "#FFDDBE",
	"#EADDFF", "#C4E9E4", "#FCE4EC", "#E8EAED", "#DDE8E8",
}

// docData is the per-(document, model) payload embedded in the page.
type docData struct {
	Text        string                      `json:"text"`
	Extractions []extraction.WireExtraction `json:"extractions"`
	ColorMap    map[string]string           `json:"colorMap"`
	Metadata    map[string]any              `json:"metadata"`
}

// HTML renders one or more results into a self-contained page. Results are
// grouped by the "doc_id" and "model_name" metadata keys, falling back to
// positional identifiers.
func HTML(results ...*extraction.Result) (string, error) {
	if len(results) == 0 {
		return "<p>No documents to visualize.</p>", nil
	}

	organized := make(map[string]map[string]docData)
	for i, res := range results {
		docID := metadataString(res.Metadata, "doc_id")
		if docID == "" {
			docID = fmt.Sprintf("Document_%d", i+1)
		}
		model := metadataString(res.Metadata, "model_name")
		if model == "" {
			model = metadataString(res.Metadata, "model")
		}
		if model == "" {
			model = "Unknown_Model"
		}

		if organized[docID] == nil {
			organized[docID] = make(map[string]docData)
		}
		organized[docID][model] = buildDocData(res)
	}

	payload, err := json.MarshalIndent(organized, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize report data: %w", err)
	}

	// Prevent accidental script-close or HTML comment injection from
	// document text.
	escaped := strings.ReplaceAll(string(payload), "</script", `<\/script`)
	escaped = strings.ReplaceAll(escaped, "<!--", `<\!--`)

	return strings.Replace(htmlTemplate, "__DATA_PLACEHOLDER__", escaped, 1), nil
}

// buildDocData serializes a result for display: only located extractions are
// highlighted, with intervals clamped and dropped when empty after clamping.
func buildDocData(res *extraction.Result) docData {
	textLen := utf8.RuneCountInString(res.Text)

	located := make([]extraction.WireExtraction, 0, len(res.Extractions))
	classes := make(map[string]bool)
	for _, ext := range res.Extractions {
		if ext.Interval == nil {
			continue
		}
		w := ext.Wire(textLen)
		if w.Interval == nil {
			continue
		}
		located = append(located, w)
		classes[className(ext.Class)] = true
	}

	meta := res.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return docData{
		Text:        res.Text,
		Extractions: located,
		ColorMap:    assignColors(classes),
		Metadata:    meta,
	}
}

func className(class string) string {
	if class == "" {
		return "unknown"
	}
	return class
}

// assignColors maps each class to a palette color, stable across renders.
func assignColors(classes map[string]bool) map[string]string {
	sorted := make([]string, 0, len(classes))
	for c := range classes {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	colors := make(map[string]string, len(sorted))
	for i, c := range sorted {
		colors[c] = palette[i%len(palette)]
	}
	return colors
}

func metadataString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
