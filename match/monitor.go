package match

import "github.com/poiesic/rentmatch/core"

// Monitor provides hooks to observe match requests.
// Implementations must be safe for concurrent use: Scored and Skipped are
// called from pool workers.
type Monitor interface {
	Start(requestID string, sale *core.Listing, candidates int)
	Scored(requestID string, result *core.MatchResult)
	Skipped(requestID string, err *core.ScoringError)
	Finish(result *Result)
	// Fail ends a started request that returned an error instead of a Result.
	Fail(requestID string, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ *core.Listing, _ int) {}
func (n *noopMonitor) Scored(_ string, _ *core.MatchResult)   {}
func (n *noopMonitor) Skipped(_ string, _ *core.ScoringError) {}
func (n *noopMonitor) Finish(_ *Result)                       {}
func (n *noopMonitor) Fail(_ string, _ error)                 {}
