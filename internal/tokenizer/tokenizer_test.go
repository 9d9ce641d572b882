package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTikTokenRoundTrip(t *testing.T) {
	tok, err := NewTikToken("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEncoding, tok.Encoding())

	inputs := []string{
		"hello world",
		"The quick brown fox jumps over the lazy dog.",
		"# Heading\n\n- item one\n- item two\n",
		"",
	}
	for _, in := range inputs {
		tokens := tok.Encode(in)
		assert.Equal(t, in, tok.Decode(tokens), "round trip for %q", in)
	}
}

func TestTikTokenCount(t *testing.T) {
	tok, err := NewTikToken(DefaultEncoding)
	require.NoError(t, err)

	assert.Equal(t, 0, Count(tok, ""))
	assert.Equal(t, 2, Count(tok, "hello world"))
}

func TestNewTikTokenUnknownEncoding(t *testing.T) {
	_, err := NewTikToken("not-an-encoding")
	assert.Error(t, err)
}
