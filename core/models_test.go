package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestFingerprintOf(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{name: "single part", parts: []string{"test content"}},
		{name: "empty string", parts: []string{""}},
		{name: "several parts", parts: []string{"title", "description", "https://example.com/a.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f1 := FingerprintOf(tt.parts...)
			f2 := FingerprintOf(tt.parts...)
			if f1 != f2 {
				t.Errorf("FingerprintOf() produced different values for same content: %d vs %d", f1, f2)
			}
		})
	}
}

func TestFingerprintOf_PartBoundaries(t *testing.T) {
	if FingerprintOf("ab", "c") == FingerprintOf("a", "bc") {
		t.Errorf("FingerprintOf() should not merge adjacent parts")
	}
}

func TestIDFromContent(t *testing.T) {
	id1 := IDFromContent("https://www.booking.com/hotel/a")
	id2 := IDFromContent("https://www.booking.com/hotel/a")
	id3 := IDFromContent("https://www.booking.com/hotel/b")

	if id1 != id2 {
		t.Errorf("IDFromContent() not deterministic: %s vs %s", id1, id2)
	}
	if id1 == id3 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
	if len(id1) != 16 {
		t.Errorf("IDFromContent() length = %d, want 16", len(id1))
	}
}

func TestListingText(t *testing.T) {
	tests := []struct {
		name    string
		listing Listing
		want    string
	}{
		{
			name:    "all fields",
			listing: Listing{Title: "Villa", Description: "Sea view", Location: "Nice"},
			want:    "Villa\nSea view\nNice",
		},
		{
			name:    "missing description",
			listing: Listing{Title: "Villa", Location: "Nice"},
			want:    "Villa\nNice",
		},
		{
			name:    "whitespace only",
			listing: Listing{Title: "  ", Description: "\t"},
			want:    "",
		},
		{
			name:    "empty",
			listing: Listing{},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.listing.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListingFingerprint(t *testing.T) {
	base := Listing{ID: "r1", Title: "Loft", Images: []string{"a.jpg"}}
	same := base
	changedImages := base
	changedImages.Images = []string{"b.jpg"}
	changedPrice := base
	changedPrice.Price = 99

	if base.Fingerprint() != same.Fingerprint() {
		t.Errorf("identical listings should share a fingerprint")
	}
	if base.Fingerprint() == changedImages.Fingerprint() {
		t.Errorf("changing images should change the fingerprint")
	}
	if base.Fingerprint() != changedPrice.Fingerprint() {
		t.Errorf("price does not feed embeddings and should not change the fingerprint")
	}
}

func TestEmbedding(t *testing.T) {
	a := NewEmbedding("m1", []float32{1, 0, 0})
	b := NewEmbedding("m1", []float32{0, 1, 0})
	otherModel := NewEmbedding("m2", []float32{1, 0, 0})
	otherDim := NewEmbedding("m1", []float32{1, 0})

	if a.Dim() != 3 {
		t.Errorf("Dim() = %d, want 3", a.Dim())
	}
	if !a.Comparable(b) {
		t.Errorf("same model and dimension should be comparable")
	}
	if a.Comparable(otherModel) {
		t.Errorf("different models should not be comparable")
	}
	if a.Comparable(otherDim) {
		t.Errorf("different dimensions should not be comparable")
	}
	if a.IsZero() {
		t.Errorf("non-zero vector reported as zero")
	}
	if !NewEmbedding("m1", []float32{0, 0}).IsZero() {
		t.Errorf("zero vector not reported as zero")
	}
	if !NewEmbedding("m1", nil).IsZero() {
		t.Errorf("empty vector not reported as zero")
	}
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("boom")

	var scoring error = &ScoringError{RentalID: "r1", Component: "text", Err: cause}
	if !errors.Is(scoring, cause) {
		t.Errorf("ScoringError should unwrap to its cause")
	}
	var se *ScoringError
	if !errors.As(fmt.Errorf("wrapped: %w", scoring), &se) || se.RentalID != "r1" {
		t.Errorf("ScoringError should be recoverable with errors.As")
	}

	var extraction error = &ExtractionError{URL: "https://x", Err: cause}
	if !errors.Is(extraction, cause) {
		t.Errorf("ExtractionError should unwrap to its cause")
	}

	var cfg error = &ConfigurationError{Field: "weights", Reason: "must sum to 1"}
	if cfg.Error() != "invalid configuration: weights: must sum to 1" {
		t.Errorf("unexpected message: %s", cfg.Error())
	}
}
