package align

import (
	"strings"

	"github.com/agext/levenshtein"

	"textspot/internal/extraction"
)

// minAnchorLen is the minimum length of a token used as a fuzzy search
// anchor; shorter tokens produce too many false candidate positions.
const minAnchorLen = 4

// fuzzySampleWindows is the approximate number of evenly spaced windows
// sampled across the text when no anchor token exists.
const fuzzySampleWindows = 10

// fuzzyLengthFactor widens the compared span beyond the target length to
// absorb insertions in the source text.
const fuzzyLengthFactor = 1.2

// matchFuzzy scores candidate spans against the lowered target and returns
// the best-scoring interval when its similarity ratio meets the threshold.
//
// Candidate starts come from occurrences of the longest whitespace-delimited
// token of the target, or from evenly spaced sample positions when no usable
// anchor exists.
func (w *window) matchFuzzy(needle []rune, threshold float64) (extraction.CharInterval, float64, bool) {
	if len(needle) == 0 {
		return extraction.CharInterval{}, 0, false
	}

	candidates := w.anchorPositions(needle)
	if len(candidates) == 0 {
		step := max(1, len(needle)/fuzzySampleWindows)
		for pos := 0; pos < max(1, len(w.lower)-1); pos += step {
			candidates = append(candidates, pos)
		}
	}

	targetLen := max(1, int(float64(len(needle))*fuzzyLengthFactor))
	target := string(needle)

	bestRatio := 0.0
	bestStart, bestEnd := -1, -1
	for _, cand := range candidates {
		candEnd := min(len(w.lower), cand+targetLen)
		if cand >= candEnd {
			continue
		}
		ratio := levenshtein.Similarity(target, string(w.lower[cand:candEnd]), nil)
		if ratio > bestRatio {
			bestRatio = ratio
			bestStart, bestEnd = cand, candEnd
		}
	}

	if bestRatio < threshold || bestStart < 0 {
		return extraction.CharInterval{}, bestRatio, false
	}
	start, end := w.toOriginal(bestStart, bestEnd)
	interval, err := extraction.NewCharInterval(start, end)
	if err != nil {
		return extraction.CharInterval{}, bestRatio, false
	}
	return interval, bestRatio, true
}

// anchorPositions returns every occurrence of the target's longest token,
// provided the token is long enough to anchor on.
func (w *window) anchorPositions(needle []rune) []int {
	tokens := strings.Fields(string(needle))
	if len(tokens) == 0 {
		return nil
	}
	longest := tokens[0]
	for _, tok := range tokens[1:] {
		if len([]rune(tok)) > len([]rune(longest)) {
			longest = tok
		}
	}
	anchor := []rune(longest)
	if len(anchor) < minAnchorLen {
		return nil
	}

	var positions []int
	pos := 0
	for {
		idx := indexRunes(w.lower, anchor, pos)
		if idx < 0 {
			break
		}
		positions = append(positions, idx)
		pos = idx + max(1, len(anchor))
	}
	return positions
}
