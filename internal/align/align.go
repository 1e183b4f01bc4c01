// Package align relocates extracted text inside a window, producing precise
// character intervals via a cascade of matching strategies: exact in-order
// search, exact global search, flexible-whitespace regex, and a fuzzy
// fallback. Offsets are rune offsets into the window text.
package align

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"textspot/internal/extraction"
)

// DefaultFuzzyThreshold is the minimum similarity ratio accepted by the fuzzy
// fallback strategy.
const DefaultFuzzyThreshold = 0.85

// Options tunes alignment behavior.
type Options struct {
	// FuzzyThreshold overrides DefaultFuzzyThreshold when > 0.
	FuzzyThreshold float64
	// Logger receives alignment-miss and low-confidence match events.
	// Alignment misses are tracked via logging only, never errors.
	Logger *slog.Logger
}

func (o Options) threshold() float64 {
	if o.FuzzyThreshold > 0 {
		return o.FuzzyThreshold
	}
	return DefaultFuzzyThreshold
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Extractions aligns each extraction against text, returning a new slice with
// intervals populated where resolvable. The input is never mutated; unresolved
// extractions are retained with a nil interval.
//
// Extractions are processed in their given order. The search position for the
// in-order strategy resumes from the end of the previous successful match, and
// only advances when a new match starts at or after it, so an out-of-order or
// fuzzy match cannot corrupt forward progress for later items.
func Extractions(exts []extraction.Extraction, text string, opts Options) []extraction.Extraction {
	logger := opts.logger()
	w := newWindow(text)

	aligned := make([]extraction.Extraction, 0, len(exts))
	lastMatchEnd := 0

	for idx, ext := range exts {
		if strings.TrimSpace(ext.Text) == "" {
			logger.Warn("skipping alignment for empty extraction text", "index", idx)
			aligned = append(aligned, ext)
			continue
		}

		needle := []rune(lowerRunes(cleanForPattern(ext.Text)))

		// 1) Exact search resuming at the last successful match end.
		pos := indexRunes(w.lower, needle, w.searchFrom(lastMatchEnd))

		// 2) Exact search over the whole window.
		if pos < 0 {
			pos = indexRunes(w.lower, needle, 0)
			if pos >= 0 {
				logger.Debug("extraction found out of order; fell back to full-window search",
					"index", idx, "text", ext.Text)
			}
		}

		if pos >= 0 {
			start, end := w.toOriginal(pos, pos+len(needle))
			interval, err := extraction.NewCharInterval(start, end)
			if err != nil {
				logger.Warn("failed to build interval for exact match", "index", idx, "error", err)
				aligned = append(aligned, ext)
				continue
			}
			if start >= lastMatchEnd {
				lastMatchEnd = end
			}
			aligned = append(aligned, ext.WithInterval(interval))
			continue
		}

		// 3) Regex search treating whitespace runs as \s+.
		if interval, ok := w.matchFlexibleWhitespace(cleanForPattern(ext.Text)); ok {
			if interval.Start >= lastMatchEnd {
				lastMatchEnd = interval.End
			}
			logger.Debug("aligned extraction via whitespace-flexible regex",
				"index", idx, "start", interval.Start, "end", interval.End)
			aligned = append(aligned, ext.WithInterval(interval))
			continue
		}

		// 4) Fuzzy fallback.
		if interval, ratio, ok := w.matchFuzzy(needle, opts.threshold()); ok {
			if interval.Start >= lastMatchEnd {
				lastMatchEnd = interval.End
			}
			logger.Debug("aligned extraction via fuzzy match",
				"index", idx, "ratio", ratio, "start", interval.Start, "end", interval.End)
			aligned = append(aligned, ext.WithInterval(interval))
			continue
		}

		logger.Warn("could not align extraction", "index", idx, "text", ext.Text)
		aligned = append(aligned, ext)
	}
	return aligned
}

// window caches the per-call views of the text the strategies share.
//
// lower is the NFC-normalized, lowercased view the exact and fuzzy strategies
// search, so a needle normalized by cleanForPattern matches documents that
// carry decomposed sequences. NFC can change rune counts, so the three offset
// tables translate between normalized and original rune positions; for text
// that is already NFC they are the identity.
type window struct {
	text  string
	lower []rune

	normStart  []int // normalized index -> original start of its segment
	normEnd    []int // normalized index -> original end of its segment
	origToNorm []int // original index -> normalized start of its segment
}

func newWindow(text string) *window {
	w := &window{text: text}

	b := []byte(text)
	origPos, normPos := 0, 0
	for len(b) > 0 {
		n := norm.NFC.NextBoundary(b, true)
		if n <= 0 {
			n = len(b)
		}
		seg := b[:n]
		normSeg := norm.NFC.Bytes(seg)
		origLen := utf8.RuneCount(seg)

		for _, r := range string(normSeg) {
			w.lower = append(w.lower, unicode.ToLower(r))
			w.normStart = append(w.normStart, origPos)
			w.normEnd = append(w.normEnd, origPos+origLen)
		}
		for range origLen {
			w.origToNorm = append(w.origToNorm, normPos)
		}
		origPos += origLen
		normPos += utf8.RuneCount(normSeg)
		b = b[n:]
	}
	return w
}

// searchFrom maps an original rune offset to the normalized offset the
// in-order search resumes from.
func (w *window) searchFrom(orig int) int {
	if orig <= 0 {
		return 0
	}
	if orig >= len(w.origToNorm) {
		return len(w.lower)
	}
	return w.origToNorm[orig]
}

// toOriginal converts a normalized match [start, end) back to original rune
// offsets. A match ending inside a composed segment extends to the segment
// end so the interval never splits a combining sequence.
func (w *window) toOriginal(start, end int) (int, int) {
	if start >= len(w.lower) || end <= start {
		return 0, 0
	}
	return w.normStart[start], w.normEnd[min(end, len(w.lower))-1]
}

// matchFlexibleWhitespace tokenizes the target on whitespace, escapes each
// token, and joins them with \s+ bounded by word edges. Handles models that
// reformat internal spacing or newlines.
func (w *window) matchFlexibleWhitespace(target string) (extraction.CharInterval, bool) {
	tokens := strings.Fields(target)
	var pattern string
	if len(tokens) > 0 {
		escaped := make([]string, len(tokens))
		for i, tok := range tokens {
			escaped[i] = regexp.QuoteMeta(tok)
		}
		pattern = `\b` + strings.Join(escaped, `\s+`) + `\b`
	} else {
		pattern = regexp.QuoteMeta(target)
	}

	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return extraction.CharInterval{}, false
	}
	loc := re.FindStringIndex(w.text)
	if loc == nil {
		return extraction.CharInterval{}, false
	}

	// Regex positions are byte offsets; convert to rune offsets.
	start := utf8.RuneCountInString(w.text[:loc[0]])
	end := start + utf8.RuneCountInString(w.text[loc[0]:loc[1]])
	interval, err := extraction.NewCharInterval(start, end)
	if err != nil {
		return extraction.CharInterval{}, false
	}
	return interval, true
}

// cleanForPattern normalizes text for matching: Unicode NFC plus removal of
// zero-width and BOM characters that models sometimes echo back.
func cleanForPattern(s string) string {
	s = norm.NFC.String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
}

// lowerRunes lowercases rune-by-rune, preserving the rune count so offsets
// into the lowered text map 1:1 onto the original.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// indexRunes returns the first occurrence of needle in hay at or after from,
// or -1.
func indexRunes(hay, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	if len(needle) == 0 || len(hay)-from < len(needle) {
		return -1
	}
	limit := len(hay) - len(needle)
	for i := from; i <= limit; i++ {
		j := 0
		for j < len(needle) && hay[i+j] == needle[j] {
			j++
		}
		if j == len(needle) {
			return i
		}
	}
	return -1
}
