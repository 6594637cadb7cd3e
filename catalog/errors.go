package catalog

import "errors"

var (
	// ErrUnknownFormat is returned when a JSON file holds neither raw nor
	// normalized listings.
	ErrUnknownFormat = errors.New("unrecognized catalog record format")

	// ErrDSNRequired is returned when no Postgres DSN is given.
	ErrDSNRequired = errors.New("postgres DSN required")
)
