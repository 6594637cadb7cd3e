// Package mock provides test double implementations of the model collaborators.
//
// This package contains mock implementations of ai.Embedder, ai.ImageEmbedder
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external model services and give controlled, deterministic behavior.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//	count := provider.GetMockEmbedder().CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors based on the text hash
//   - MockImageEmbedder: deterministic unit vectors based on the image reference
//   - MockProvider: aggregates both and reports fixed model tags
//
// Call counters are atomic, so the mocks can be shared by concurrent workers.
package mock
