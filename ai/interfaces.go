package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEmbedder generates vector embeddings from images.
// Implementations must be thread-safe for concurrent use.
type ImageEmbedder interface {
	// EmbedImage generates a vector embedding for one image reference.
	// The reference is either an http(s) URL or a data: URI carrying the bytes.
	EmbedImage(ctx context.Context, ref string) ([]float32, error)
}

// Provider aggregates the model collaborators.
// A provider is created once per process and injected where embeddings are needed.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ImageEmbedder returns the image embedding service.
	ImageEmbedder() ImageEmbedder

	// TextModel returns the version tag of vectors produced by Embedder.
	TextModel() string

	// ImageModel returns the version tag of vectors produced by ImageEmbedder.
	ImageModel() string

	// Close releases resources held by the provider and its services.
	Close() error
}
