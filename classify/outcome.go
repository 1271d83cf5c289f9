package classify

import "time"

// OutcomeKind is the executor's decision about an attempt result.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeSuccess
	OutcomeRetryable
	OutcomeNonRetryable
	// OutcomeAbort stops the attempt sequence immediately without consuming
	// quota, e.g. on context cancellation.
	OutcomeAbort
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeNonRetryable:
		return "non_retryable"
	case OutcomeAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Outcome describes the classification of one attempt.
type Outcome struct {
	Kind   OutcomeKind
	Reason string

	// Throttle marks throttling responses. The adaptive strategy reduces its
	// send rate when it sees one.
	Throttle bool

	// Timeout marks timeout-class failures, which drain the retry quota
	// faster than ordinary retryable failures.
	Timeout bool

	// BackoffOverride, when positive, replaces the computed backoff before
	// the next attempt (e.g. a server Retry-After hint). The strategy still
	// caps it at its configured maximum delay.
	BackoffOverride time.Duration

	// Attributes holds classifier-specific metadata for observers.
	Attributes map[string]string
}

// Classifier maps one attempt's result onto an Outcome. Classifiers are
// supplied by the transport layer; the retry core only consumes them.
type Classifier interface {
	Classify(value any, err error) Outcome
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(value any, err error) Outcome

func (f ClassifierFunc) Classify(value any, err error) Outcome {
	return f(value, err)
}
