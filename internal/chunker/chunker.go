package chunker

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"pdf-rag/internal/tokenizer"
)

// ErrInvalidConfig is returned when window size and overlap cannot produce chunks.
var ErrInvalidConfig = errors.New("invalid chunking configuration")

// Options controls how text is chunked.
type Options struct {
	WindowSize int
	Overlap    int
}

// DefaultOptions returns the production window of 500 tokens with 50 overlapping.
func DefaultOptions() Options {
	return Options{WindowSize: 500, Overlap: 50}
}

// Validate reports whether the options describe a terminating window.
func (o Options) Validate() error {
	if o.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfig, o.WindowSize)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, o.Overlap)
	}
	if o.Overlap >= o.WindowSize {
		return fmt.Errorf("%w: overlap %d must be less than window size %d", ErrInvalidConfig, o.Overlap, o.WindowSize)
	}
	return nil
}

// Step is the token distance between consecutive chunk starts.
func (o Options) Step() int {
	return o.WindowSize - o.Overlap
}

// Chunk is a decoded token window of a document.
type Chunk struct {
	ChunkID    int
	Text       string
	StartToken int
	EndToken   int // exclusive
	TokenCount int

	SourceFile string
	SourceName string
}

// ChunkText slides a window of opts.WindowSize tokens over text, advancing
// opts.Step() tokens each time until the window starts past the last token.
// Windows near the end are clipped, so the trailing chunks can be short.
// Each chunk's text is the decoded window.
func ChunkText(text string, tok tokenizer.Tokenizer, opts Options) ([]Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	tokens := tok.Encode(text)
	step := opts.Step()

	var chunks []Chunk
	for start := 0; start < len(tokens); start += step {
		window := slice(tokens, start, opts.WindowSize)
		chunks = append(chunks, Chunk{
			ChunkID:    len(chunks),
			Text:       tok.Decode(window),
			StartToken: start,
			EndToken:   start + len(window),
			TokenCount: len(window),
		})
	}
	return chunks, nil
}

// slice returns tokens[start:start+size] clipped to the sequence.
func slice(tokens []int, start, size int) []int {
	if start >= len(tokens) {
		return nil
	}
	end := start + size
	if end > len(tokens) {
		end = len(tokens)
	}
	return tokens[start:end]
}

// WithSource returns a copy of chunks annotated with the file they came from.
func WithSource(chunks []Chunk, path string) []Chunk {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		c.SourceFile = path
		c.SourceName = name
		out[i] = c
	}
	return out
}
