package parse

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"textspot/internal/extraction"
)

var (
	fencePattern = regexp.MustCompile("(?is)```(?:json)?\\s*([\\s\\S]*?)```")

	// labelValuePattern matches "label: value" style lines, accepting colon
	// and dash separators.
	labelValuePattern = regexp.MustCompile(`^\s*([^:–—\-]+?)\s*[:\-–—]\s*(.+)$`)
)

// Synonym keys used to coerce loosely shaped objects, matched
// case-insensitively. Order is the priority when an object carries more
// than one synonym for the same role.
var (
	classKeys = []string{"extraction_class", "class", "type", "label", "category", "name"}
	textKeys  = []string{"extraction_text", "text", "value", "span", "extracted_text", "item"}
	attrKeys  = []string{"attributes", "attrs", "properties", "metadata", "meta"}
)

// objectMatcher inspects one JSON object and either produces a candidate or
// reports no match. Matchers are tried in fixed priority order.
type objectMatcher func(item map[string]any) (extraction.Candidate, bool)

var objectMatchers = []objectMatcher{
	matchSynonymKeys,
	matchSingleKey,
	matchLabelSpan,
}

// transform coerces a decoded JSON value into candidates. Nested lists are
// flattened recursively; the result is idempotent on already-canonical input.
func transform(value any) []extraction.Candidate {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		var out []extraction.Candidate
		for _, item := range v {
			out = append(out, transform(item)...)
		}
		return out
	case map[string]any:
		if inner := listFrom(v); inner != nil {
			return transform(inner)
		}
		for _, match := range objectMatchers {
			if cand, ok := match(v); ok {
				return []extraction.Candidate{cand}
			}
		}
		return []extraction.Candidate{unknownCandidate(encodeJSON(v))}
	case string:
		return transformString(v)
	default:
		return []extraction.Candidate{unknownCandidate(stringify(v))}
	}
}

// transformString tries a string item as nested JSON, then as a
// "label: value" pattern, then falls back to an unknown candidate.
func transformString(s string) []extraction.Candidate {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var nested any
	if err := json.Unmarshal([]byte(s), &nested); err == nil {
		switch nested.(type) {
		case map[string]any, []any:
			return transform(nested)
		}
	}

	if m := labelValuePattern.FindStringSubmatch(s); m != nil {
		return []extraction.Candidate{{
			Class:      strings.TrimSpace(m[1]),
			Text:       strings.TrimSpace(m[2]),
			Attributes: map[string]any{},
		}}
	}

	return []extraction.Candidate{unknownCandidate(s)}
}

// matchSynonymKeys coerces objects carrying both a class-like and a text-like
// key, with attributes picked up from any attribute synonym.
func matchSynonymKeys(item map[string]any) (extraction.Candidate, bool) {
	byLower := make(map[string]string, len(item))
	for _, k := range slices.Sorted(maps.Keys(item)) {
		lower := strings.ToLower(k)
		if _, seen := byLower[lower]; !seen {
			byLower[lower] = k
		}
	}
	pick := func(synonyms []string) string {
		for _, s := range synonyms {
			if k, ok := byLower[s]; ok {
				return k
			}
		}
		return ""
	}

	classKey, textKey, attrKey := pick(classKeys), pick(textKeys), pick(attrKeys)
	if classKey == "" || textKey == "" {
		return extraction.Candidate{}, false
	}

	attrs := map[string]any{}
	if attrKey != "" {
		switch a := item[attrKey].(type) {
		case nil:
		case map[string]any:
			attrs = a
		default:
			// Non-mapping attributes are preserved under a synthetic key
			// rather than discarded.
			attrs = map[string]any{"value": a}
		}
	}

	return extraction.Candidate{
		Class:      strings.TrimSpace(stringify(item[classKey])),
		Text:       strings.TrimSpace(stringify(item[textKey])),
		Attributes: attrs,
	}, true
}

// matchSingleKey treats a single-entry object as {class: key, text: value}.
func matchSingleKey(item map[string]any) (extraction.Candidate, bool) {
	if len(item) != 1 {
		return extraction.Candidate{}, false
	}
	for k, v := range item {
		return extraction.Candidate{
			Class:      strings.TrimSpace(k),
			Text:       strings.TrimSpace(stringify(v)),
			Attributes: map[string]any{},
		}, true
	}
	return extraction.Candidate{}, false
}

// matchLabelSpan coerces {label, span|text} shaped objects.
func matchLabelSpan(item map[string]any) (extraction.Candidate, bool) {
	label, ok := item["label"]
	if !ok {
		return extraction.Candidate{}, false
	}
	text, ok := item["span"]
	if !ok || stringify(text) == "" {
		text, ok = item["text"]
	}
	if !ok {
		return extraction.Candidate{}, false
	}
	return extraction.Candidate{
		Class:      strings.TrimSpace(stringify(label)),
		Text:       strings.TrimSpace(stringify(text)),
		Attributes: map[string]any{},
	}, true
}

func unknownCandidate(text string) extraction.Candidate {
	return extraction.Candidate{
		Class:      "unknown",
		Text:       text,
		Attributes: map[string]any{},
	}
}

// stringify renders a JSON value as text: strings pass through, composites
// are JSON-encoded, scalars use their default formatting.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		return encodeJSON(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
