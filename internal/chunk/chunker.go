// Package chunk splits extracted text into overlapping character windows
// aligned to sentence boundaries where possible.
package chunk

// DefaultSize is the target number of characters per chunk.
const DefaultSize = 1000

// DefaultOverlap is the number of overlapping characters between
// consecutive chunks.
const DefaultOverlap = 200

// sentenceTerminators are checked when snapping a chunk boundary back to a
// sentence end.
var sentenceTerminators = []byte{'.', '!', '?'}

// Chunk pairs an ordinal with its text window.
type Chunk struct {
	Ordinal int
	Text    string
}

// Chunker splits text into fixed-size, overlapping windows, preferring to
// break at a sentence boundary near the target size.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the target window size in characters.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between windows in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker with the given options, defaulting to 1000/200.
func New(opts ...Option) *Chunker {
	c := &Chunker{size: DefaultSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Chunk splits text into ordinal-ordered, overlapping windows. It is a
// pure function: the same input always yields the same output. Empty
// input yields zero chunks; any non-empty input yields at least one.
func (c *Chunker) Chunk(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	stride := c.size - c.overlap
	if stride <= 0 {
		stride = c.size
	}

	estimated := n/stride + 1
	chunks := make([]Chunk, 0, estimated)

	ordinal := 0
	start := 0
	for start < n {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.snapToSentenceBoundary(runes, start, end)
		}

		chunks = append(chunks, Chunk{Ordinal: ordinal, Text: string(runes[start:end])})
		ordinal++

		if end >= n {
			break
		}
		start += stride
		if start >= end {
			start = end
		}
	}

	return chunks
}

// snapToSentenceBoundary looks backward from the target end position, up to
// 10% of the chunk size, for a sentence terminator followed by whitespace
// or end of text. If none is found within that budget, it returns the
// original hard-cut position.
func (c *Chunker) snapToSentenceBoundary(runes []rune, start, end int) int {
	budget := c.size / 10
	if budget < 1 {
		return end
	}
	limit := end - budget
	if limit < start {
		limit = start
	}

	for i := end - 1; i > limit; i-- {
		if isTerminator(runes[i]) {
			next := i + 1
			if next >= len(runes) || runes[next] == ' ' || runes[next] == '\n' || runes[next] == '\t' {
				if next > start {
					return next
				}
			}
		}
	}
	return end
}

func isTerminator(r rune) bool {
	for _, t := range sentenceTerminators {
		if rune(t) == r {
			return true
		}
	}
	return false
}
