package classify

import (
	"context"
	"errors"
)

// Built-in classifier registry names.
const (
	ClassifierDefault = "default"
	ClassifierHTTP    = "http"
)

// RegisterBuiltins registers the core classifiers into reg.
func RegisterBuiltins(reg *Registry) {
	if reg == nil {
		return
	}
	reg.Register(ClassifierDefault, DefaultClassifier{})
	reg.Register(ClassifierHTTP, HTTPClassifier{})
}

// retryableError marks an error as retryable regardless of its type.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// nonRetryableError marks an error as terminal regardless of its type.
type nonRetryableError struct{ err error }

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// Retryable marks err as a retryable transport failure. The default
// classifier honors the mark; the original cause stays reachable through
// errors.Is/As.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// NonRetryable marks err as terminal: it is surfaced immediately and never
// retried.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsRetryable reports whether err carries a Retryable mark anywhere in its
// chain.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// IsNonRetryable reports whether err carries a NonRetryable mark anywhere in
// its chain.
func IsNonRetryable(err error) bool {
	var nre *nonRetryableError
	return errors.As(err, &nre)
}

// DefaultClassifier classifies nil errors as success and unmarked errors as
// retryable. Context cancellation aborts immediately; a per-attempt deadline
// is retryable but counts as a timeout for quota purposes.
type DefaultClassifier struct{}

func (DefaultClassifier) Classify(_ any, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Reason: "success"}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeAbort, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Per-attempt timeouts are often transient; the executor still honors
		// the overall context deadline separately.
		return Outcome{Kind: OutcomeRetryable, Reason: "context_deadline_exceeded", Timeout: true}
	}
	if IsNonRetryable(err) {
		return Outcome{Kind: OutcomeNonRetryable, Reason: "non_retryable_error"}
	}
	if IsRetryable(err) {
		return Outcome{Kind: OutcomeRetryable, Reason: "retryable_error"}
	}
	return Outcome{Kind: OutcomeRetryable, Reason: "retryable_error"}
}
