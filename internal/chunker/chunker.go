// Package chunker splits extracted document text into overlapping
// fixed-size segments suitable for embedding. Consecutive segments
// share an overlap region so context spanning a segment boundary is
// never lost to retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target maximum segment length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared between
	// consecutive segments.
	DefaultChunkOverlap = 200
)

// boundaries lists the break candidates in preference order: paragraph,
// line, sentence end, word. A segment is cut at the last occurrence of
// the highest-priority boundary found inside the lookback window; only
// when none matches does the splitter fall back to a hard character cut.
var boundaries = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Splitter produces deterministic overlapping segments from text.
// It is stateless after construction and safe for concurrent use.
type Splitter struct {
	// size is the target maximum segment length in characters.
	size int
	// overlap is the number of characters repeated at the start of the
	// next segment.
	overlap int
}

// New constructs a Splitter. Non-positive size or overlap fall back to
// the defaults; an overlap that reaches the segment size is clamped to
// a tenth of it so the window always advances.
func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split cuts text into segments of at most the configured size with the
// configured overlap between consecutive segments. Whitespace-only
// input produces zero segments — the caller must treat that as an
// ingestion failure. Text that already fits in one segment is returned
// unchanged as a single element.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.size {
		return []string{text}
	}

	var segments []string
	start := 0
	for start < len(text) {
		end := start + s.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.breakPoint(text, start, end)
		}

		if seg := strings.TrimSpace(text[start:end]); seg != "" {
			segments = append(segments, seg)
		}
		if end == len(text) {
			break
		}

		next := alignRune(text, end-s.overlap)
		if next <= start {
			// Overlap would stall the window; force progress by one rune.
			_, n := utf8.DecodeRuneInString(text[start:])
			next = start + n
		}
		start = next
	}

	return segments
}

// breakPoint returns the cut position for the segment starting at start
// with a tentative hard cut at end. It scans a lookback window of one
// overlap length for natural boundaries in preference order and breaks
// just after the last occurrence of the best one found.
func (s *Splitter) breakPoint(text string, start, end int) int {
	lo := end - s.overlap
	if lo <= start {
		lo = start + 1
	}

	window := text[lo:end]
	for _, sep := range boundaries {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return lo + i + len(sep)
		}
	}

	// Hard cut: never split a multibyte rune.
	if cut := alignRune(text, end); cut > start {
		return cut
	}
	_, n := utf8.DecodeRuneInString(text[start:])
	return start + n
}

// alignRune moves i back to the start of the rune it falls inside, so a
// byte-offset cut never lands mid code point.
func alignRune(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
