package chunker

import (
	"fmt"
	"strings"

	"docsearch/internal/domain"
)

const (
	DefaultWindowSize = 500
	DefaultOverlap    = 50
)

// WordChunker splits text into windows of words that overlap by a fixed
// number of words.
type WordChunker struct {
	windowSize int
	overlap    int
}

var _ domain.Chunker = (*WordChunker)(nil)

// NewWordChunker creates a chunker. A non-positive window selects the
// default; a negative overlap is treated as zero.
func NewWordChunker(windowSize, overlap int) (*WordChunker, error) {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= windowSize {
		return nil, fmt.Errorf("%w: window=%d overlap=%d", domain.ErrInvalidChunkWindow, windowSize, overlap)
	}
	return &WordChunker{windowSize: windowSize, overlap: overlap}, nil
}

// Split returns the chunks of text in document order.
func (c *WordChunker) Split(text string) []string {
	return Split(text, c.windowSize, c.overlap)
}

// WindowSize returns the number of words per chunk.
func (c *WordChunker) WindowSize() int { return c.windowSize }

// Overlap returns the number of words shared by consecutive chunks.
func (c *WordChunker) Overlap() int { return c.overlap }

// Split tokenizes text on whitespace and emits a window of windowSize words
// at every multiple of windowSize-overlap. Trailing windows may be shorter.
// overlap must be smaller than windowSize.
func Split(text string, windowSize, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := windowSize - overlap
	if step <= 0 {
		step = 1
	}
	chunks := make([]string, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := start + windowSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
