package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poiesic/rentmatch/ai"
	"github.com/tmc/langchaingo/embeddings"
)

// ImageEmbedder implements ai.ImageEmbedder against an OpenAI-compatible
// embeddings endpoint serving a vision model. Images are sent as base64 data URIs.
type ImageEmbedder struct {
	embedder embeddings.Embedder
	fetcher  *imageFetcher
	logger   *slog.Logger
}

var _ ai.ImageEmbedder = (*ImageEmbedder)(nil)

func newImageEmbedder(config *ai.Config) (*ImageEmbedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Data URIs must reach the server byte-exact.
	embedder, err := newLangchainEmbedder(config.ImageHost, config.ImageModel, config.APIKey, false)
	if err != nil {
		return nil, err
	}

	return &ImageEmbedder{
		embedder: embedder,
		fetcher:  newImageFetcher(&http.Client{Timeout: config.ImageTimeout}, config.MaxImageBytes),
		logger:   config.Logger.With("component", "openai-image-embedder"),
	}, nil
}

// NewImageEmbedder creates a new image embedder using the provided configuration.
func NewImageEmbedder(config *ai.Config) (ai.ImageEmbedder, error) {
	return newImageEmbedder(config)
}

// EmbedImage fetches the image if needed and embeds it.
func (e *ImageEmbedder) EmbedImage(ctx context.Context, ref string) ([]float32, error) {
	uri, err := e.fetcher.DataURI(ctx, ref)
	if err != nil {
		e.logger.Debug("failed to fetch image", "ref", truncateRef(ref), "err", err)
		return nil, err
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{uri})
	if err != nil {
		e.logger.Error("failed to generate image embedding", "ref", truncateRef(ref), "err", err)
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}
	return vectors[0], nil
}

// imageFetcher turns image references into data URIs.
type imageFetcher struct {
	client   *http.Client
	maxBytes int64
}

func newImageFetcher(client *http.Client, maxBytes int64) *imageFetcher {
	return &imageFetcher{client: client, maxBytes: maxBytes}
}

// DataURI returns ref as a data URI, downloading http(s) references.
// Failures that a retry cannot fix are marked with ai.Permanent.
func (f *imageFetcher) DataURI(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return ref, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
	default:
		return "", ai.Permanent(fmt.Errorf("%w: %s", ai.ErrUnsupportedImageRef, truncateRef(ref)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", ai.Permanent(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", ai.Permanent(err)
		}
		return "", err
	}
	if resp.ContentLength > f.maxBytes {
		return "", ai.Permanent(ai.ErrImageTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > f.maxBytes {
		return "", ai.Permanent(ai.ErrImageTooLarge)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func truncateRef(ref string) string {
	if len(ref) > 80 {
		return ref[:80] + "..."
	}
	return ref
}
