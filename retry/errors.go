package retry

import (
	"errors"
	"fmt"
)

// ErrExhausted matches any ExhaustedError via errors.Is.
var ErrExhausted = errors.New("backstop: retries exhausted")

// Exhaustion reasons.
const (
	ReasonMaxAttempts    = "max_attempts_reached"
	ReasonQuotaExhausted = "retry_quota_exhausted"
)

// ExhaustedError is returned once attempts or retry quota run out. It wraps
// the last underlying failure so the cause chain stays inspectable.
type ExhaustedError struct {
	Attempts int
	Reason   string
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("backstop: retries exhausted after %d attempt(s) (%s): %v", e.Attempts, e.Reason, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// NoClassifierError indicates a strategy referenced a classifier name that
// is not registered with the executor.
type NoClassifierError struct {
	Name string
}

func (e *NoClassifierError) Error() string {
	return fmt.Sprintf("backstop: classifier not found: %s", e.Name)
}

// PanicError reports a panic captured in user code or a classifier when the
// executor runs with panic recovery enabled.
type PanicError struct {
	Component string
	Value     any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("backstop: panic in %s: %v", e.Component, e.Value)
}
