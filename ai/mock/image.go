package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/rentmatch/ai"
)

// MockImageEmbedder is a test double for ai.ImageEmbedder.
type MockImageEmbedder struct {
	// EmbedImageFunc is called by EmbedImage if set.
	// If nil, the reference string is hashed into a deterministic vector.
	EmbedImageFunc func(ctx context.Context, ref string) ([]float32, error)

	callCount atomic.Int64
}

var _ ai.ImageEmbedder = (*MockImageEmbedder)(nil)

// NewMockImageEmbedder creates a mock image embedder with default deterministic behavior.
func NewMockImageEmbedder() *MockImageEmbedder {
	return &MockImageEmbedder{}
}

// EmbedImage returns a deterministic embedding for ref.
func (m *MockImageEmbedder) EmbedImage(ctx context.Context, ref string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EmbedImageFunc != nil {
		return m.EmbedImageFunc(ctx, ref)
	}
	return DeterministicVector("image:"+ref, 512), nil
}

// CallCount returns the number of times EmbedImage was called.
func (m *MockImageEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom behavior.
func (m *MockImageEmbedder) Reset() {
	m.callCount.Store(0)
	m.EmbedImageFunc = nil
}
