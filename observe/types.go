package observe

import (
	"time"

	"github.com/perihelion-io/backstop/classify"
)

// AttemptRecord describes a single attempt execution.
type AttemptRecord struct {
	Attempt   int
	StartTime time.Time
	EndTime   time.Time

	Outcome classify.Outcome
	Err     error

	// Backoff is the delay that preceded this attempt.
	Backoff time.Duration
}

// QuotaDecision records one retry-quota check.
type QuotaDecision struct {
	Attempt   int
	Allowed   bool
	Remaining int
}

// Timeline is the structured record of a single call and all of its
// attempts.
type Timeline struct {
	StrategyID string
	Start      time.Time
	End        time.Time

	Attempts []AttemptRecord
	Quota    []QuotaDecision
	FinalErr error
}

// Retries returns the number of attempts beyond the first.
func (tl Timeline) Retries() int {
	if len(tl.Attempts) <= 1 {
		return 0
	}
	return len(tl.Attempts) - 1
}
