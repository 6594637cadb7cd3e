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


package core

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// StudioRooms is the room count used for studio apartments.
const StudioRooms = 0.5

// Fingerprint is a content digest used to detect stale cached embeddings.
type Fingerprint uint64

// FingerprintOf generates a deterministic fingerprint from text content using BLAKE2b hashing.
// Identical content always produces identical fingerprints.
func FingerprintOf(parts ...string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return Fingerprint(binary.LittleEndian.Uint64(h.Sum(nil)))
}

// IDFromContent derives a stable string identifier from content, used for rentals
// that arrive without an identifier of their own and for image cache keys.
func IDFromContent(text string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Listing is a sale or rental property record.
// Sale listings come from an extractor, rentals from the catalog.
// A Listing must not be mutated while a match operation is using it.
type Listing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"` // currency normalized
	Rooms       float64  `json:"rooms"` // StudioRooms for studios
	Location    string   `json:"location"`
	Images      []string `json:"images,omitempty"` // http(s) URLs or data: URIs
	Platform    string   `json:"platform,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Text returns the embeddable text of the listing: title, description and
// location in that order, one per line. Empty fields are skipped.
func (l *Listing) Text() string {
	parts := make([]string, 0, 3)
	for _, field := range []string{l.Title, l.Description, l.Location} {
		if s := strings.TrimSpace(field); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Fingerprint digests everything that feeds the listing's embeddings.
func (l *Listing) Fingerprint() Fingerprint {
	parts := make([]string, 0, len(l.Images)+1)
	parts = append(parts, l.Text())
	parts = append(parts, l.Images...)
	return FingerprintOf(parts...)
}

// Embedding is a model-tagged vector. Two embeddings are only comparable when
// they were produced by the same model with the same dimension.
type Embedding struct {
	Model  string
	Vector []float32
}

// NewEmbedding tags a vector with the model that produced it.
func NewEmbedding(model string, vector []float32) Embedding {
	return Embedding{Model: model, Vector: vector}
}

// Dim returns the vector dimension.
func (e Embedding) Dim() int {
	return len(e.Vector)
}

// IsZero reports whether the vector is empty or all zeros.
func (e Embedding) IsZero() bool {
	for _, v := range e.Vector {
		if v != 0 {
			return false
		}
	}
	return true
}

// Comparable reports whether e and other live in the same vector space.
func (e Embedding) Comparable(other Embedding) bool {
	return e.Model == other.Model && e.Dim() == other.Dim()
}

// MatchResult is the score of one rental against the sale listing.
type MatchResult struct {
	RentalID        string  `json:"rental_id"`
	Platform        string  `json:"platform,omitempty"`
	URL             string  `json:"url,omitempty"`
	TextScore       float64 `json:"text_score"`
	ImageScore      float64 `json:"image_score"`
	StructuredScore float64 `json:"structured_score"`
	FinalScore      int     `json:"final_score"` // 0..100
}
