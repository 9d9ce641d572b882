package llm

import (
	"context"
	"iter"
	"slices"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
// The first return value is the []string of fragments to stream.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Stream(ctx context.Context, system, prompt string) iter.Seq[string] {
	args := m.Called(ctx, system, prompt)
	fragments, _ := args.Get(0).([]string)
	return slices.Values(fragments)
}
