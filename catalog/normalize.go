package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/rentmatch/core"
)

var (
	// nonNumericRegexp strips currency symbols and thousands separators.
	nonNumericRegexp = regexp.MustCompile(`[^\d.]`)
	// roomCountRegexp captures explicit counts like "2-Bedroom" or "3 room".
	roomCountRegexp = regexp.MustCompile(`(?i)(\d+)\s*[-_]?\s*(bedroom|room|apartment|suite)`)
)

// looseString accepts a JSON string, number or null.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(n.String())
	return nil
}

// RawRental is a scraped booking-site record.
type RawRental struct {
	Name      looseString `json:"Name"`
	Location  looseString `json:"Location"`
	RoomType  looseString `json:"Room Type"`
	Rating    looseString `json:"Rating"`
	Breakfast looseString `json:"Breakfast"`
	Price     looseString `json:"Price"`
	Link      looseString `json:"Link"`
	Images    []string    `json:"Images,omitempty"`
}

// Normalize converts a raw record into a Listing. The ID is derived from the
// link so re-imports of the same page replace the earlier record.
func (r *RawRental) Normalize() *core.Listing {
	link := strings.TrimSpace(string(r.Link))
	title := strings.TrimSpace(string(r.Name))
	if title == "" {
		title = "Unnamed Rental Listing"
	}

	description := fmt.Sprintf("%s. Located in %s. Room type: %s. Rating: %s. Breakfast: %s.",
		orDefault(r.Name, "Unnamed Listing"),
		orDefault(r.Location, "Unknown Location"),
		orDefault(r.RoomType, "N/A"),
		orDefault(r.Rating, "No rating"),
		orDefault(r.Breakfast, "Not specified"))

	id := link
	if id == "" {
		id = description
	}

	return &core.Listing{
		ID:          core.IDFromContent(id),
		Title:       title,
		Description: description,
		Price:       ParsePrice(string(r.Price)),
		Rooms:       ParseRooms(string(r.RoomType)),
		Location:    strings.TrimSpace(string(r.Location)),
		Images:      r.Images,
		Platform:    PlatformFromURL(link),
		URL:         link,
	}
}

func orDefault(s looseString, fallback string) string {
	if v := strings.TrimSpace(string(s)); v != "" {
		return v
	}
	return fallback
}

// ParsePrice extracts a number from a price string such as "PKR 55,776".
// Unparseable input yields 0.
func ParsePrice(s string) float64 {
	numeric := nonNumericRegexp.ReplaceAllString(s, "")
	if numeric == "" {
		return 0
	}
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseRooms estimates a room count from a room type description. An
// explicit count wins; otherwise common hotel room names are mapped.
// Studios count as core.StudioRooms. Unknown types yield 0.
func ParseRooms(roomType string) float64 {
	if roomType == "" {
		return 0
	}
	if m := roomCountRegexp.FindStringSubmatch(roomType); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return float64(n)
		}
	}

	lower := strings.ToLower(roomType)
	switch {
	case strings.Contains(lower, "studio"):
		return core.StudioRooms
	case strings.Contains(lower, "single"):
		return 1
	case strings.Contains(lower, "double") && !strings.Contains(lower, "twin"):
		return 2
	case strings.Contains(lower, "twin"):
		return 2
	case strings.Contains(lower, "triple"):
		return 3
	case strings.Contains(lower, "quadruple"), strings.Contains(lower, "family"):
		return 4
	}
	return 0
}

// PlatformFromURL names the marketplace from the link's domain, e.g.
// "https://www.airbnb.com/rooms/1" is "Airbnb". Booking links and links
// without a host are "Booking.com".
func PlatformFromURL(link string) string {
	const fallback = "Booking.com"
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return fallback
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" || label == "booking" {
		return fallback
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
