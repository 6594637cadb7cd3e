package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/rentmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_MixedFormats(t *testing.T) {
	listings, err := ParseJSON([]byte(`[
		{"Name": "Casa", "Link": "https://www.booking.com/a", "Price": "€ 100", "Room Type": "Single Room"},
		{"id": "n1", "title": "Loft", "price": 90, "rooms": 1, "location": "Berlin"}
	]`))
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Casa", listings[0].Title)
	assert.Equal(t, 100.0, listings[0].Price)
	assert.Equal(t, "n1", listings[1].ID)
	assert.Equal(t, "Berlin", listings[1].Location)
}

func TestParseJSON_Errors(t *testing.T) {
	_, err := ParseJSON([]byte(`{"not": "an array"}`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`[{"foo": 1}]`))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseJSON([]byte(`[{"title": "x", "price": "cheap"}]`))
	assert.Error(t, err)
}

func TestJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentals.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"Name": "Casa", "Link": "https://www.booking.com/a"}]`), 0644))

	listings, err := (&JSONFile{Path: path}).Listings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)

	_, err = (&JSONFile{Path: filepath.Join(t.TempDir(), "missing.json")}).Listings(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type staticSource []*core.Listing

func (s staticSource) Listings(context.Context) ([]*core.Listing, error) {
	return s, nil
}

func TestCollect(t *testing.T) {
	src := staticSource{
		{ID: "a", Title: "A", URL: "https://x/1"},
		{ID: "b", Title: "B", URL: "https://x/1"},
		{ID: "a", Title: "A again"},
		{ID: "neg", Price: -5},
		{Title: "derived", URL: "https://x/2"},
		{Title: "no id no url"},
	}
	listings, dropped, err := Collect(context.Background(), src, nil)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "a", listings[0].ID)
	assert.Equal(t, core.IDFromContent("https://x/2"), listings[1].ID)
	assert.Equal(t, 4, dropped)
}

func TestPostgresRowListing(t *testing.T) {
	row := postgresRow{
		Title:    "2-Bedroom Apartment near Duomo",
		Price:    180,
		Location: "Florence",
		URL:      "https://www.airbnb.com/rooms/9",
	}
	listing := row.listing()
	assert.Equal(t, core.IDFromContent(row.URL), listing.ID)
	assert.Equal(t, 2.0, listing.Rooms)
	assert.Equal(t, "Airbnb", listing.Platform)

	row.Platform = "airbnb"
	assert.Equal(t, "airbnb", row.listing().Platform)
}

func TestOpenPostgres_RequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), " ")
	assert.ErrorIs(t, err, ErrDSNRequired)
}
