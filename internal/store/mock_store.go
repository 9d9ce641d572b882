package store

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pdf-rag/internal/chunker"
	"pdf-rag/internal/embeddings"
)

// MockIndex is a mock implementation of Index using testify/mock.
type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Add(ctx context.Context, chunks []chunker.Chunk, documentID string) (int, error) {
	args := m.Called(ctx, chunks, documentID)
	return args.Int(0), args.Error(1)
}

func (m *MockIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Hit), args.Error(1)
}

func (m *MockIndex) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockIndex) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockBackend is a mock implementation of Backend using testify/mock.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Upsert(ctx context.Context, records []Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockBackend) Query(ctx context.Context, vector embeddings.Vector, k int) ([]Hit, error) {
	args := m.Called(ctx, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Hit), args.Error(1)
}

func (m *MockBackend) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}
