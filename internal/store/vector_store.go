package store

import (
	"context"
	"fmt"
	"log/slog"

	"pdf-rag/internal/chunker"
	"pdf-rag/internal/embeddings"
)

const (
	defaultBatchSize = 64
	defaultTopK      = 5
)

// VectorStore embeds chunks and queries and delegates storage to a Backend.
type VectorStore struct {
	backend   Backend
	embedder  embeddings.Embedder
	log       *slog.Logger
	batchSize int
}

// NewVectorStore composes an embedder with a backend.
func NewVectorStore(backend Backend, embedder embeddings.Embedder, log *slog.Logger, batchSize int) *VectorStore {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &VectorStore{backend: backend, embedder: embedder, log: log, batchSize: batchSize}
}

// Add embeds and stores a document's chunks under ids <documentID>_chunk_<id>.
// It returns the number of chunks stored.
func (s *VectorStore) Add(ctx context.Context, chunks []chunker.Chunk, documentID string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	records := make([]Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks of %s: %w", documentID, err)
		}
		if len(vecs) != len(batch) {
			return 0, fmt.Errorf("embed chunks of %s: got %d vectors for %d chunks", documentID, len(vecs), len(batch))
		}
		for i, c := range batch {
			records = append(records, Record{
				ID:       RecordID(documentID, c.ChunkID),
				Text:     c.Text,
				Vector:   vecs[i],
				Metadata: ChunkMetadata(documentID, c),
			})
		}
	}
	if err := s.backend.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("store chunks of %s: %w", documentID, err)
	}
	s.log.Debug("added chunks", "document", documentID, "count", len(records))
	return len(records), nil
}

// Search returns the k chunks closest to query, best first.
func (s *VectorStore) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = defaultTopK
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return s.backend.Query(ctx, vecs[0], k)
}

func (s *VectorStore) Count(ctx context.Context) (int, error) {
	return s.backend.Count(ctx)
}

func (s *VectorStore) Clear(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return err
	}
	s.log.Info("vector store cleared")
	return nil
}

func (s *VectorStore) Close() error {
	return s.backend.Close()
}
