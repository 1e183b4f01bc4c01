// Package chunk splits a document into overlapping fixed-size windows with
// known source offsets. Window boundaries and offsets are measured in runes.
package chunk

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidConfig is returned for chunk parameters that can never produce a
// valid window sequence.
var ErrInvalidConfig = errors.New("invalid chunk configuration")

// Chunk is a bounded, offset-tagged substring of the source document.
// StartChar is the rune offset of Text within the original document.
type Chunk struct {
	Text      string
	StartChar int
}

// Split returns a lazy sequence of windows over text. Each window spans
// [start, start+size) runes, clipped to the text length; consecutive windows
// advance by size-overlap, so size > overlap guarantees progress. A final
// window shorter than size is emitted when keepTrailing is true, or when it
// is also the first window. Empty text yields zero windows.
//
// Configuration errors are reported before any window is produced. Each call
// returns a fresh sequence; ranging over it again restarts from the top.
func Split(text string, size, overlap int, keepTrailing bool) (iter.Seq[Chunk], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be > 0, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be >= 0, got %d", ErrInvalidConfig, overlap)
	}
	if size <= overlap {
		return nil, fmt.Errorf("%w: size (%d) must be greater than overlap (%d)", ErrInvalidConfig, size, overlap)
	}

	runes := []rune(text)
	seq := func(yield func(Chunk) bool) {
		n := len(runes)
		start := 0
		for start < n {
			end := start + size
			if end > n {
				// Trailing window shorter than size.
				if keepTrailing || start == 0 {
					yield(Chunk{Text: string(runes[start:n]), StartChar: start})
				}
				return
			}
			if !yield(Chunk{Text: string(runes[start:end]), StartChar: start}) {
				return
			}
			start += size - overlap
		}
	}
	return seq, nil
}
