package pipeline

import (
	"math"
	"strings"

	"textspot/internal/extraction"
)

// dedupeKey merges duplicate extractions across overlapping windows:
// the class plus the lowercased, whitespace-collapsed text.
type dedupeKey struct {
	class string
	text  string
}

// Dedupe keeps at most one extraction per (class, normalized text) key.
// Among duplicates the one with the smallest resolved interval start wins;
// an unresolved interval sorts after any resolved one. Output order is the
// insertion order of first-seen keys, not positional order.
func Dedupe(exts []extraction.Extraction) []extraction.Extraction {
	if len(exts) == 0 {
		return exts
	}

	index := make(map[dedupeKey]int, len(exts))
	out := make([]extraction.Extraction, 0, len(exts))

	for _, ext := range exts {
		key := dedupeKey{class: ext.Class, text: normalizeText(ext.Text)}
		if i, ok := index[key]; ok {
			if startOf(ext) < startOf(out[i]) {
				out[i] = ext
			}
			continue
		}
		index[key] = len(out)
		out = append(out, ext)
	}
	return out
}

// normalizeText collapses internal whitespace runs to single spaces and
// lowercases.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// startOf orders extractions by resolved interval start, with unresolved
// intervals after everything else.
func startOf(e extraction.Extraction) int {
	if e.Interval == nil {
		return math.MaxInt
	}
	return e.Interval.Start
}
