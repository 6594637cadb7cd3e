package embedding

import "errors"

var (
	// ErrProviderRequired is returned when no AI provider is given.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrInvalidMaxImages is returned for a non-positive image cap.
	ErrInvalidMaxImages = errors.New("max images per listing must be positive")

	// ErrInvalidBatchSize is returned for a non-positive warm-up batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)
