// Package parse tolerantly converts raw model output into normalized
// extraction candidates. Model output is data, not a pipeline fault: anything
// that fails to yield a usable JSON list normalizes to zero candidates.
package parse

import (
	"encoding/json"
	"strings"

	"textspot/internal/extraction"
)

// listKeys are the recognized top-level object keys whose value may carry the
// extraction list.
var listKeys = []string{"extractions", "items", "results", "entities"}

// Normalize converts arbitrary extraction-like model output into an ordered
// list of candidates. Applied in order, each step a fallback for the
// previous: strip an enclosing code fence, parse the whole content as JSON,
// scan for balanced bracket spans and parse each, and finally give up with an
// empty list.
func Normalize(raw string) []extraction.Candidate {
	content := stripCodeFence(raw)

	items := parseWhole(content)
	if items == nil {
		for _, cand := range findJSONCandidates(content) {
			if items = parseWhole(cand); items != nil {
				break
			}
		}
	}
	if items == nil {
		return nil
	}
	return transform(items)
}

// parseWhole attempts to parse content as JSON and extract a usable list:
// either a bare list, or an object carrying a recognized list key.
func parseWhole(content string) any {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}
	return listFrom(parsed)
}

func listFrom(parsed any) any {
	switch v := parsed.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range listKeys {
			if inner, ok := v[key]; ok {
				if list, ok := inner.([]any); ok {
					return list
				}
			}
		}
	}
	return nil
}

// stripCodeFence returns the contents of the first triple-backtick fence
// (``` or ```json) if present, otherwise the original text.
func stripCodeFence(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// findJSONCandidates scans text for balanced {...} and [...] spans using a
// depth counter that skips brackets inside quoted strings, honoring escape
// sequences.
func findJSONCandidates(text string) []string {
	var candidates []string
	runes := []rune(text)
	n := len(runes)

	i := 0
	for i < n {
		opening := runes[i]
		if opening != '{' && opening != '[' {
			i++
			continue
		}
		closing := rune('}')
		if opening == '[' {
			closing = ']'
		}

		depth := 0
		inString := false
		escaped := false
		matched := false
		for j := i; j < n; j++ {
			c := runes[j]
			if c == '"' && !escaped {
				inString = !inString
			}
			if c == '\\' && !escaped {
				escaped = true
			} else {
				escaped = false
			}
			if inString {
				continue
			}
			switch c {
			case opening:
				depth++
			case closing:
				depth--
			}
			if depth == 0 {
				candidates = append(candidates, string(runes[i:j+1]))
				i = j + 1
				matched = true
				break
			}
		}
		if !matched {
			// No balancing close; skip the opener and keep scanning.
			i++
		}
	}
	return candidates
}
