package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultOllamaModel = "llama3.2"

	// Ollama ignores the key, but the client sends one.
	ollamaAPIKey = "ollama"
)

// NewOllamaClient streams from a local Ollama server through its
// OpenAI-compatible /v1 API. baseURL is the server root, e.g. http://localhost:11434.
func NewOllamaClient(baseURL string, model string, timeout time.Duration, opts ...option.RequestOption) (*OpenAIClient, error) {
	if model == "" {
		model = defaultOllamaModel
	}
	opts = append([]option.RequestOption{option.WithBaseURL(ollamaV1URL(baseURL))}, opts...)
	return NewOpenAIClient(ollamaAPIKey, openai.ChatModel(model), timeout, opts...)
}

// ollamaV1URL maps a server root to its OpenAI-compatible API root.
func ollamaV1URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/v1/"
}

// Ping checks that the API is reachable and the model is available.
// Ollama lists pulled models with a tag ("llama3.2:latest"), so a
// prefix match is enough.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("nil openai client")
	}
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	model := string(c.model)
	for _, m := range page.Data {
		if m.ID == model || strings.HasPrefix(m.ID, model+":") {
			return nil
		}
	}
	return fmt.Errorf("model %s not found, run: ollama pull %s", model, model)
}
