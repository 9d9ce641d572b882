package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdf-rag/internal/cache"
	"pdf-rag/internal/store"
)

// Retriever runs single-query searches and formats the results.
type Retriever struct {
	index    store.Index
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

// New builds a Retriever. A nil cache disables context caching.
func New(index store.Index, c cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Retriever {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Retriever{index: index, cache: c, cacheTTL: cacheTTL, log: log}
}

// Retrieve returns the top-k chunks for query in the index's best-first order.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	hits, err := r.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	chunks := make([]RetrievedChunk, len(hits))
	for i, h := range hits {
		distance := float64(h.Distance)
		chunks[i] = RetrievedChunk{
			Text:      h.Text,
			SourcePDF: h.Metadata[store.MetaSourcePDF],
			Distance:  &distance,
			Metadata:  h.Metadata,
		}
	}
	return chunks, nil
}

// RetrieveAndFormat returns the formatted context block for query, served
// from the cache when possible. Cache failures only degrade to a fresh search.
func (r *Retriever) RetrieveAndFormat(ctx context.Context, query string, k int) (string, error) {
	key := cache.GenerateCacheKey(query, k)
	if cached, found, err := r.cache.GetContext(ctx, key); err != nil {
		r.log.Warn("context cache read failed", "err", err)
	} else if found {
		r.log.Debug("context cache hit", "query", query)
		return cached, nil
	}

	chunks, err := r.Retrieve(ctx, query, k)
	if err != nil {
		return "", err
	}
	block := Format(chunks)
	if len(chunks) > 0 {
		if err := r.cache.SetContext(ctx, key, block, r.cacheTTL); err != nil {
			r.log.Warn("context cache write failed", "err", err)
		}
	}
	return block, nil
}
