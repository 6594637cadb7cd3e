package rentmatch

import (
	"context"

	"github.com/poiesic/rentmatch/core"
)

// Extractor turns a sale listing URL into a Listing. Implementations live
// outside this module (scrapers, APIs); the service never retries them.
type Extractor interface {
	Extract(ctx context.Context, url string) (*core.Listing, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, url string) (*core.Listing, error)

// Extract calls f(ctx, url).
func (f ExtractorFunc) Extract(ctx context.Context, url string) (*core.Listing, error) {
	return f(ctx, url)
}
