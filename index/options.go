package index

import (
	"log/slog"

	"github.com/poiesic/rentmatch/core"
)

// Options tunes candidate generation.
type Options struct {
	// TextTopK is the number of text hits taken per query.
	TextTopK int
	// ImageTopK is the number of image hits taken per query.
	ImageTopK int
	// FinalCandidates caps the merged candidate list.
	FinalCandidates int
	// Concurrency bounds the rentals embedded in parallel by Build.
	Concurrency int
	Logger      *slog.Logger
}

// DefaultOptions returns 20 text hits, 20 image hits and 30 candidates.
func DefaultOptions() Options {
	return Options{
		TextTopK:        20,
		ImageTopK:       20,
		FinalCandidates: 30,
		Concurrency:     4,
	}
}

// Validate checks that every limit is positive.
func (o Options) Validate() error {
	switch {
	case o.TextTopK < 1:
		return &core.ConfigurationError{Field: "TextTopK", Reason: "must be at least 1"}
	case o.ImageTopK < 1:
		return &core.ConfigurationError{Field: "ImageTopK", Reason: "must be at least 1"}
	case o.FinalCandidates < 1:
		return &core.ConfigurationError{Field: "FinalCandidates", Reason: "must be at least 1"}
	case o.Concurrency < 1:
		return &core.ConfigurationError{Field: "Concurrency", Reason: "must be at least 1"}
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
