package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"pdf-rag/internal/chunker"
	"pdf-rag/internal/embeddings"
)

// Metadata keys persisted with every chunk. All values are strings.
const (
	MetaSourcePDF  = "source_pdf"
	MetaChunkID    = "chunk_id"
	MetaTokenCount = "token_count"
	MetaSourceFile = "source_file"
	MetaSourceName = "source_name"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is one stored chunk with its embedding.
type Record struct {
	ID       string
	Text     string
	Vector   embeddings.Vector
	Metadata map[string]string
}

// Hit is a search result. Lower Distance is more relevant.
type Hit struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float32
}

// Backend persists records and answers nearest-neighbour queries in best-first order.
type Backend interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector embeddings.Vector, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Index is the document-level contract shared by ingestion and retrieval.
type Index interface {
	Add(ctx context.Context, chunks []chunker.Chunk, documentID string) (int, error)
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// RecordID is the storage identifier of a document's chunk.
func RecordID(documentID string, chunkID int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkID)
}

// ChunkMetadata returns the string metadata persisted for a chunk.
func ChunkMetadata(documentID string, c chunker.Chunk) map[string]string {
	return map[string]string{
		MetaSourcePDF:  documentID,
		MetaChunkID:    strconv.Itoa(c.ChunkID),
		MetaTokenCount: strconv.Itoa(c.TokenCount),
		MetaSourceFile: c.SourceFile,
		MetaSourceName: c.SourceName,
	}
}
