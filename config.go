// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rentmatch

import (
	"time"

	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/embedding"
	"github.com/poiesic/rentmatch/index"
	"github.com/poiesic/rentmatch/match"
)

// Config holds the matching tunables.
type Config struct {
	// TextTopK is the number of text hits taken from the index.
	// Default: 20
	TextTopK int

	// ImageTopK is the number of image hits taken from the index.
	// Default: 20
	ImageTopK int

	// FinalCandidates caps the rentals scored when an index is available.
	// Default: 30
	FinalCandidates int

	// Concurrency bounds the rentals scored and embedded at once.
	// Default: 4
	Concurrency int

	// Timeout bounds a match request. Zero means no limit.
	Timeout time.Duration

	// MaxImagesPerListing caps the photos embedded per listing.
	// Default: 2
	MaxImagesPerListing int

	// FastMode trades accuracy for speed: fewer candidates and less weight
	// on images.
	FastMode bool

	// IndexPath is where RebuildIndex saves the index snapshot. Empty keeps
	// the index in memory only.
	IndexPath string
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		TextTopK:            20,
		ImageTopK:           20,
		FinalCandidates:     30,
		Concurrency:         match.DefaultConcurrency,
		MaxImagesPerListing: embedding.DefaultMaxImages,
	}
}

// FastConfig returns the fast mode preset.
func FastConfig() Config {
	c := DefaultConfig()
	c.TextTopK = 10
	c.ImageTopK = 10
	c.FinalCandidates = 15
	c.FastMode = true
	return c
}

// Validate checks the tunables.
func (c Config) Validate() error {
	if c.MaxImagesPerListing < 1 {
		return &core.ConfigurationError{Field: "MaxImagesPerListing", Reason: "must be at least 1"}
	}
	if c.Timeout < 0 {
		return &core.ConfigurationError{Field: "Timeout", Reason: "must not be negative"}
	}
	return c.indexOptions().Validate()
}

// Weights returns the component weights for the configured mode.
func (c Config) Weights() match.Weights {
	if c.FastMode {
		return match.FastWeights()
	}
	return match.DefaultWeights()
}

func (c Config) indexOptions() index.Options {
	return index.Options{
		TextTopK:        c.TextTopK,
		ImageTopK:       c.ImageTopK,
		FinalCandidates: c.FinalCandidates,
		Concurrency:     c.Concurrency,
	}
}
