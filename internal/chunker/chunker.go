// Package chunker splits extracted text into overlapping chunks suitable for
// embedding.
package chunker

import "strings"

// DefaultSeparators is the split hierarchy, tried in order. Paragraph breaks
// first, then line breaks, then sentence ends, then words, then characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text recursively along a separator hierarchy, then merges
// the pieces into chunks of at most chunkSize characters with chunkOverlap
// characters carried over between consecutive chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New creates a chunker with the given size and overlap (in characters).
// Overlap must be smaller than size; callers validate their config upstream.
func New(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
}

// Chunk splits text into overlapping chunks. Returns nil for empty or
// whitespace-only input. Chunk order follows text order.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, c.separators)
}

// split picks the first separator present in text, splits on it, recursively
// re-splits oversized pieces with the remaining separators, and merges the
// rest greedily.
func (c *Chunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, cand := range separators {
		if cand == "" {
			sep = cand
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = separators[i+1:]
			break
		}
	}

	var final []string
	var pending []string
	for _, piece := range splitKeeping(text, sep) {
		if len(piece) < c.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			final = append(final, c.merge(pending, sep)...)
			pending = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, c.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		final = append(final, c.merge(pending, sep)...)
	}
	return final
}

// merge joins pieces greedily up to chunkSize, then slides forward keeping
// the last chunkOverlap characters as the start of the next chunk.
func (c *Chunker) merge(pieces []string, sep string) []string {
	sepLen := len(sep)
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		joined := strings.TrimSpace(strings.Join(window, sep))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, piece := range pieces {
		pieceLen := len(piece)
		if len(window) > 0 && total+pieceLen+sepLen > c.chunkSize {
			flush()
			// Drop from the front until the carried tail fits the overlap
			// and leaves room for the incoming piece.
			for len(window) > 0 &&
				(total > c.chunkOverlap || total+pieceLen+sepLen > c.chunkSize) {
				total -= len(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += pieceLen
		if len(window) > 1 {
			total += sepLen
		}
	}
	if len(window) > 0 {
		flush()
	}
	return chunks
}

// splitKeeping splits text on sep, dropping empty pieces. An empty separator
// splits into single characters so the merge step can rebuild fixed-size
// windows from arbitrary unbroken runs.
func splitKeeping(text, sep string) []string {
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	for _, p := range strings.Split(text, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
