package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/rentmatch/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestImageFetcher_DataURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.jpg":
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			w.Write([]byte("jpegbytes"))
		case "/sniff":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(pngHeader)
		case "/big":
			w.Write(make([]byte, 64))
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := newImageFetcher(&http.Client{Timeout: time.Second}, 32)
	ctx := context.Background()

	t.Run("data uri passes through", func(t *testing.T) {
		uri, err := fetcher.DataURI(ctx, "data:image/png;base64,AAAA")
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,AAAA", uri)
	})

	t.Run("download with declared type", func(t *testing.T) {
		uri, err := fetcher.DataURI(ctx, server.URL+"/photo.jpg")
		require.NoError(t, err)
		assert.Equal(t, "data:image/jpeg;base64,anBlZ2J5dGVz", uri)
	})

	t.Run("content type sniffed", func(t *testing.T) {
		uri, err := fetcher.DataURI(ctx, server.URL+"/sniff")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), uri)
	})

	t.Run("too large is permanent", func(t *testing.T) {
		_, err := fetcher.DataURI(ctx, server.URL+"/big")
		assert.ErrorIs(t, err, ai.ErrImageTooLarge)
		assert.True(t, ai.IsPermanent(err))
	})

	t.Run("not found is permanent", func(t *testing.T) {
		_, err := fetcher.DataURI(ctx, server.URL+"/missing")
		require.Error(t, err)
		assert.True(t, ai.IsPermanent(err))
	})

	t.Run("server error is retryable", func(t *testing.T) {
		_, err := fetcher.DataURI(ctx, server.URL+"/broken")
		require.Error(t, err)
		assert.False(t, ai.IsPermanent(err))
	})

	t.Run("unsupported reference", func(t *testing.T) {
		_, err := fetcher.DataURI(ctx, "ftp://example.com/a.jpg")
		assert.ErrorIs(t, err, ai.ErrUnsupportedImageRef)
		assert.True(t, ai.IsPermanent(err))
	})
}

func TestTruncateRef(t *testing.T) {
	assert.Equal(t, "short", truncateRef("short"))
	long := strings.Repeat("a", 100)
	assert.Len(t, truncateRef(long), 83)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.DefaultConfig()
	cfg.ImageModel = ""

	_, err := NewProvider(cfg)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "all-minilm", provider.TextModel())
	assert.Equal(t, "clip-ViT-B-32", provider.ImageModel())
	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.ImageEmbedder())
}
