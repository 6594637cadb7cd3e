package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/poiesic/rentmatch/core"
)

const (
	pingAttempts = 5
	pingDelay    = 2 * time.Second

	// selectListings reads the scraper's listings table.
	selectListings = `
		SELECT platform, title, price, location, url, description
		FROM listings
		ORDER BY id
	`
)

// Postgres reads rentals from the scraper's PostgreSQL listings table.
type Postgres struct {
	db *sql.DB
}

var _ Source = (*Postgres)(nil)

// OpenPostgres connects to dsn, retrying the initial ping while the server
// comes up.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrDSNRequired
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if attempt == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(pingDelay):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Listings fetches every row.
func (p *Postgres) Listings(ctx context.Context) ([]*core.Listing, error) {
	rows, err := p.db.QueryContext(ctx, selectListings)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*core.Listing
	for rows.Next() {
		var row postgresRow
		if err := rows.Scan(&row.Platform, &row.Title, &row.Price, &row.Location, &row.URL, &row.Description); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, row.listing())
	}
	return listings, rows.Err()
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

type postgresRow struct {
	Platform    string
	Title       string
	Price       float64
	Location    string
	URL         string
	Description string
}

// listing maps a row. The table has no room column, so rooms are read from
// the title the same way raw room types are.
func (r postgresRow) listing() *core.Listing {
	platform := r.Platform
	if platform == "" {
		platform = PlatformFromURL(r.URL)
	}
	return &core.Listing{
		ID:          core.IDFromContent(r.URL),
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Rooms:       ParseRooms(r.Title),
		Location:    r.Location,
		Platform:    platform,
		URL:         r.URL,
	}
}
