package service

import "github.com/stockline/orderengine/internal/core/domain"

type CommitStatus int

const (
	StatusCommitted CommitStatus = iota
	StatusConflicted
)

// CommitOutcome classifies one commit attempt from its per-line
// affected-row counts.
type CommitOutcome struct {
	Status CommitStatus
	// ConflictLine is the index of the first line whose conditional update
	// affected zero rows, or -1 when the attempt committed.
	ConflictLine int
}

// ClassifyCommit is a pure classifier over the affected-row counts of one
// attempt's conditional updates: Committed iff every count is 1. It never
// inspects inventory state and never retries.
func ClassifyCommit(counts []int64) CommitOutcome {
	for i, n := range counts {
		if n == 0 {
			return CommitOutcome{Status: StatusConflicted, ConflictLine: i}
		}
	}
	return CommitOutcome{Status: StatusCommitted, ConflictLine: -1}
}

// attemptResult is the typed outcome of one commit-engine attempt. Exactly
// one of the fields is set: order on commit, reject on a terminal business
// rejection, conflictItem when the attempt lost the version race.
// Infrastructure failures travel as ordinary errors alongside it.
type attemptResult struct {
	order        *domain.Order
	reject       error
	conflictItem string
}
