package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/embeddings"
)

func newTestBolt(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "db", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStoreQueryOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a.pdf_chunk_0", Text: "east", Vector: embeddings.Vector{1, 0}, Metadata: map[string]string{MetaSourcePDF: "a.pdf"}},
		{ID: "a.pdf_chunk_1", Text: "north", Vector: embeddings.Vector{0, 1}, Metadata: map[string]string{MetaSourcePDF: "a.pdf"}},
		{ID: "b.pdf_chunk_0", Text: "north-east", Vector: embeddings.Vector{1, 1}, Metadata: map[string]string{MetaSourcePDF: "b.pdf"}},
	}))

	hits, err := s.Query(ctx, embeddings.Vector{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.pdf_chunk_0", hits[0].ID)
	assert.Equal(t, "east", hits[0].Text)
	assert.Equal(t, "b.pdf_chunk_0", hits[1].ID)
	assert.Equal(t, "b.pdf", hits[1].Metadata[MetaSourcePDF])
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestBoltStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	require.NoError(t, s.Upsert(ctx, []Record{{ID: "x_chunk_0", Text: "old", Vector: embeddings.Vector{1, 0}}}))
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "x_chunk_0", Text: "new", Vector: embeddings.Vector{1, 0}}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := s.Query(ctx, embeddings.Vector{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Text)
}

func TestBoltStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	require.NoError(t, s.Upsert(ctx, []Record{{ID: "x_chunk_0", Vector: embeddings.Vector{1, 0}}}))
	err := s.Upsert(ctx, []Record{{ID: "x_chunk_1", Vector: embeddings.Vector{1, 0, 0}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Query(ctx, embeddings.Vector{1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBoltStoreClear(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "x_chunk_0", Vector: embeddings.Vector{1, 0}},
		{ID: "x_chunk_1", Vector: embeddings.Vector{0, 1}},
	}))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Clear(ctx))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// dimension is forgotten with the data
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "y_chunk_0", Vector: embeddings.Vector{1, 2, 3}}}))
}

func TestBoltStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "x_chunk_0", Text: "kept", Vector: embeddings.Vector{1}}}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
