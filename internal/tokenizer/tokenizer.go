package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the BPE encoding used by gpt-3.5-turbo.
const DefaultEncoding = "cl100k_base"

// Tokenizer is a reversible text <-> token capability.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

var loaderOnce sync.Once

// TikToken wraps a tiktoken BPE encoding.
type TikToken struct {
	encoding string
	bpe      *tiktoken.Tiktoken
}

// NewTikToken loads the named encoding from the embedded BPE ranks,
// so no network access is needed at runtime.
func NewTikToken(encoding string) (*TikToken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	bpe, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &TikToken{encoding: encoding, bpe: bpe}, nil
}

// Encode treats special-token text as ordinary text.
func (t *TikToken) Encode(text string) []int {
	return t.bpe.Encode(text, nil, nil)
}

func (t *TikToken) Decode(tokens []int) string {
	return t.bpe.Decode(tokens)
}

// Encoding returns the name of the loaded encoding.
func (t *TikToken) Encoding() string {
	return t.encoding
}

// Count returns the number of tokens in text.
func Count(tok Tokenizer, text string) int {
	return len(tok.Encode(text))
}
