package embeddings

import (
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOllamaEmbeddingModel = "all-minilm"

// NewOllamaEmbedder embeds through a local Ollama server's OpenAI-compatible
// /v1/embeddings endpoint. baseURL is the server root, e.g. http://localhost:11434.
func NewOllamaEmbedder(baseURL, model string, opts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if model == "" {
		model = defaultOllamaEmbeddingModel
	}
	base := strings.TrimRight(baseURL, "/") + "/v1/"
	opts = append([]option.RequestOption{option.WithBaseURL(base)}, opts...)
	return NewOpenAIEmbedder("ollama", openai.EmbeddingModel(model), opts...)
}
