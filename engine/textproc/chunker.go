package textproc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 800
	// DefaultOverlap is the number of characters shared by consecutive chunks.
	DefaultOverlap = 150
	// minChunkLen is the floor below which trailing fragments are discarded.
	minChunkLen = 50
)

// Chunk is a bounded segment of cleaned text, the unit of indexing.
type Chunk struct {
	Text      string
	Index     int
	CharCount int
}

// findSectionBreak looks for a structural boundary in the window immediately
// preceding pos and returns the adjusted cut position. Paragraph separators
// win over single newlines, which win over sentence ends. When the window
// holds no boundary the cut stays at pos: a mid-sentence cut beats an
// unbounded search.
func findSectionBreak(text []rune, pos, window int) int {
	start := pos - window
	if start < 0 {
		start = 0
	}

	for i := pos - 2; i >= start; i-- {
		if text[i] == '\n' && text[i+1] == '\n' {
			return i + 2
		}
	}
	for i := pos - 1; i >= start; i-- {
		if text[i] == '\n' {
			return i + 1
		}
	}
	for i := pos - 2; i >= start; i-- {
		if (text[i] == '.' || text[i] == ';') && unicode.IsSpace(text[i+1]) {
			if j := nextNonSpace(text, i+1, pos); j != -1 && unicode.IsUpper(text[j]) {
				return i + 1
			}
		}
	}
	return pos
}

// nextNonSpace returns the index of the first non-space rune in [from, limit),
// or -1 when the remainder is all whitespace.
func nextNonSpace(text []rune, from, limit int) int {
	for i := from; i < limit; i++ {
		if !unicode.IsSpace(text[i]) {
			return i
		}
	}
	return -1
}

// ChunkText splits cleaned text into overlapping chunks of roughly size
// characters, adjusting each cut to a nearby section break. Requires
// size > overlap >= 0. Trailing fragments at or under the minimum floor are
// dropped. The cursor strictly advances every iteration, so the walk is
// bounded by the text length.
func ChunkText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(text)
	var chunks []Chunk
	start := 0

	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findSectionBreak(runes, end, size/5)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(piece) > minChunkLen {
			chunks = append(chunks, Chunk{
				Text:      piece,
				Index:     len(chunks),
				CharCount: utf8.RuneCountInString(piece),
			})
		}

		// Degenerate overlap: a boundary adjustment can pull end back far
		// enough that end-overlap does not advance. Force forward progress.
		next := end - overlap
		if next <= start {
			start = end
		} else {
			start = next
		}
	}
	return chunks
}
