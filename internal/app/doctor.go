package app

import (
	"context"
	"fmt"
	"time"

	"pdf-rag/internal/cache"
	"pdf-rag/internal/embeddings"
	"pdf-rag/internal/store"
	"pdf-rag/internal/tokenizer"
)

// Check is the outcome of one environment check.
type Check struct {
	Name   string
	Detail string
	Err    error
}

// OK reports whether the check passed.
func (c Check) OK() bool { return c.Err == nil }

type pinger interface {
	Ping(ctx context.Context) error
}

const checkTimeout = 10 * time.Second

// Doctor checks each configured component in turn.
func (d Deps) Doctor(ctx context.Context) []Check {
	return runChecks(ctx, d.Tokenizer, d.Index, d.Embedder, d.LLM, d.Cache, d.Config.EmbeddingDim)
}

func runChecks(ctx context.Context, tok tokenizer.Tokenizer, index store.Index, emb embeddings.Embedder, client any, c cache.Cache, dim int) []Check {
	var checks []Check
	check := func(name string, fn func(ctx context.Context) (string, error)) {
		ctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		detail, err := fn(ctx)
		checks = append(checks, Check{Name: name, Detail: detail, Err: err})
	}

	check("tokenizer", func(context.Context) (string, error) {
		n := tokenizer.Count(tok, "hello world")
		if n == 0 {
			return "", fmt.Errorf("tokenizer produced no tokens")
		}
		return fmt.Sprintf("%d tokens for a sample sentence", n), nil
	})

	check("store", func(ctx context.Context) (string, error) {
		n, err := index.Count(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d chunks indexed", n), nil
	})

	check("embeddings", func(ctx context.Context) (string, error) {
		vecs, err := emb.Embed(ctx, []string{"ping"})
		if err != nil {
			return "", err
		}
		if len(vecs) != 1 {
			return "", fmt.Errorf("expected 1 vector, got %d", len(vecs))
		}
		got := len(vecs[0])
		if dim > 0 && got != dim {
			return "", fmt.Errorf("embedding dimension %d does not match EMBEDDING_DIM %d", got, dim)
		}
		return fmt.Sprintf("dimension %d", got), nil
	})

	check("llm", func(ctx context.Context) (string, error) {
		p, ok := client.(pinger)
		if !ok {
			return "no health check for this provider", nil
		}
		if err := p.Ping(ctx); err != nil {
			return "", err
		}
		return "model available", nil
	})

	check("cache", func(ctx context.Context) (string, error) {
		if _, ok := c.(*cache.NoOpCache); ok {
			return "disabled", nil
		}
		if _, _, err := c.GetContext(ctx, cache.GenerateCacheKey("doctor", 1)); err != nil {
			return "", err
		}
		return "reachable", nil
	})

	return checks
}
