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


package similarity

import (
	"context"

	"github.com/poiesic/rentmatch/core"
)

// Component names reported in core.ScoringError.
const (
	ComponentText       = "text"
	ComponentImage      = "image"
	ComponentStructured = "structured"
)

// Scorer compares a sale listing with a rental.
// Implementations return a value in [0, 1] or a *core.ScoringError.
type Scorer interface {
	Score(ctx context.Context, sale, rental *core.Listing) (float64, error)
}

// Preparer is implemented by scorers that can do per-request work on the sale
// listing before any rental is scored. A Prepare failure is fatal for the
// request since no rental could be scored without it.
type Preparer interface {
	Prepare(ctx context.Context, sale *core.Listing) error
}

// EmbeddingSource yields model-tagged embeddings for listings.
type EmbeddingSource interface {
	// TextEmbedding embeds Listing.Text(). Empty text yields a zero vector.
	TextEmbedding(ctx context.Context, listing *core.Listing) (core.Embedding, error)

	// ImageEmbeddings embeds the listing's images. Images that could not be
	// embedded are left out, so the result may be shorter than Images.
	ImageEmbeddings(ctx context.Context, listing *core.Listing) ([]core.Embedding, error)
}

func scoringError(rental *core.Listing, component string, err error) error {
	return &core.ScoringError{RentalID: rental.ID, Component: component, Err: err}
}
