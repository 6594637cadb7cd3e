package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/rentmatch/core"
)

// Source supplies rental listings. Implementations return listings that may
// still fail validation; Collect filters them.
type Source interface {
	Listings(ctx context.Context) ([]*core.Listing, error)
}

// JSONFile reads a JSON array of either raw booking-site records or
// normalized listings. The format is detected per record.
type JSONFile struct {
	Path string
}

var _ Source = (*JSONFile)(nil)

// recordProbe tells raw records (capitalized booking keys) from normalized
// listings. Field matching in encoding/json is case-insensitive, so the
// probe uses keys the two formats do not share.
type recordProbe struct {
	Link     *string `json:"Link"`
	RoomType *string `json:"Room Type"`
	Title    *string `json:"title"`
}

// Listings parses the file.
func (f *JSONFile) Listings(ctx context.Context) ([]*core.Listing, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return ParseJSON(data)
}

// ParseJSON decodes a JSON array of raw or normalized records.
func ParseJSON(data []byte) ([]*core.Listing, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	listings := make([]*core.Listing, 0, len(records))
	for i, record := range records {
		var probe recordProbe
		_ = json.Unmarshal(record, &probe)

		switch {
		case probe.Title != nil:
			var listing core.Listing
			if err := json.Unmarshal(record, &listing); err != nil {
				return nil, fmt.Errorf("catalog: record %d: %w", i, err)
			}
			listings = append(listings, &listing)
		case probe.Link != nil || probe.RoomType != nil:
			var raw RawRental
			if err := json.Unmarshal(record, &raw); err != nil {
				return nil, fmt.Errorf("catalog: record %d: %w", i, err)
			}
			listings = append(listings, raw.Normalize())
		default:
			return nil, fmt.Errorf("catalog: record %d: %w", i, ErrUnknownFormat)
		}
	}
	return listings, nil
}

// Collect reads src, drops invalid listings and repeated URLs, and returns
// the survivors with the number dropped. Normalized listings without an ID
// get one derived from their URL.
func Collect(ctx context.Context, src Source, logger *slog.Logger) ([]*core.Listing, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listings, err := src.Listings(ctx)
	if err != nil {
		return nil, 0, err
	}

	valid := make([]*core.Listing, 0, len(listings))
	dropped := 0
	for _, listing := range listings {
		if listing.ID == "" && listing.URL != "" {
			listing.ID = core.IDFromContent(listing.URL)
		}
		if err := core.ValidateListing(listing); err != nil {
			logger.Warn("dropping rental", "url", listing.URL, "err", err)
			dropped++
			continue
		}
		valid = append(valid, listing)
	}

	deduped := Dedupe(valid)
	dropped += len(valid) - len(deduped)
	return deduped, dropped, nil
}

// Dedupe keeps the first listing for each ID and each non-empty URL.
func Dedupe(listings []*core.Listing) []*core.Listing {
	seenIDs := make(map[string]struct{}, len(listings))
	seenURLs := make(map[string]struct{}, len(listings))
	result := make([]*core.Listing, 0, len(listings))
	for _, listing := range listings {
		if _, ok := seenIDs[listing.ID]; ok {
			continue
		}
		if listing.URL != "" {
			if _, ok := seenURLs[listing.URL]; ok {
				continue
			}
			seenURLs[listing.URL] = struct{}{}
		}
		seenIDs[listing.ID] = struct{}{}
		result = append(result, listing)
	}
	return result
}
