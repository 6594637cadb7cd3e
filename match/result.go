package match

import (
	"time"

	"github.com/poiesic/rentmatch/core"
)

// Outcome classifies a finished request.
type Outcome int

const (
	// OutcomeMatched means at least one rental was ranked.
	OutcomeMatched Outcome = iota
	// OutcomeEmptyCatalog means there was nothing to score.
	OutcomeEmptyCatalog
	// OutcomeAllSkipped means every candidate failed to score.
	OutcomeAllSkipped
	// OutcomeTimedOut means the deadline passed before anything was ranked.
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeEmptyCatalog:
		return "empty_catalog"
	case OutcomeAllSkipped:
		return "all_skipped"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Result is the ranked answer to one match request.
type Result struct {
	RequestID string `json:"request_id"`
	// Matches is ordered by FinalScore descending, ties by RentalID.
	Matches []*core.MatchResult `json:"matches"`
	// Candidates is the number of rentals considered.
	Candidates int `json:"candidates"`
	// Skipped counts rentals that failed to score.
	Skipped int `json:"skipped"`
	// Abandoned counts rentals never scored because the request ended first.
	Abandoned int `json:"abandoned"`
	// Partial is set when the deadline cut the request short.
	Partial bool          `json:"partial"`
	Elapsed time.Duration `json:"elapsed"`
}

// Outcome reports how the request ended.
func (r *Result) Outcome() Outcome {
	switch {
	case r.Candidates == 0:
		return OutcomeEmptyCatalog
	case len(r.Matches) > 0:
		return OutcomeMatched
	case r.Skipped == r.Candidates:
		return OutcomeAllSkipped
	case r.Partial:
		return OutcomeTimedOut
	default:
		return OutcomeMatched
	}
}
