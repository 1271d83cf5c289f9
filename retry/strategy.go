package retry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/perihelion-io/backstop/classify"
	"github.com/perihelion-io/backstop/quota"
)

// Strategy encapsulates whether a failed attempt should be retried and the
// delay before the next attempt. A Strategy is constructed once per client
// by the Resolver and shared across all concurrent operation calls; every
// method is safe for concurrent use.
type Strategy interface {
	// ID identifies this resolved strategy instance in logs and timelines.
	ID() string

	// MaxAttempts bounds the total attempts, including the first. Always >= 1.
	MaxAttempts() int

	// ClassifierName names the registered classifier this strategy was
	// configured with; empty means the executor's default.
	ClassifierName() string

	// Prepare gates the next attempt. The adaptive variant blocks here until
	// its send-rate limiter grants a slot; other variants return nil
	// immediately. Honors ctx cancellation.
	Prepare(ctx context.Context) error

	// AcquireToken reserves retry quota before a retry attempt. It never
	// blocks; false means the quota is exhausted. The first attempt of a
	// call is never gated.
	AcquireToken() (*quota.Token, bool)

	// Quota exposes the shared token bucket, or nil when the variant has
	// none.
	Quota() *quota.TokenBucket

	// Delay computes the backoff before retry attemptIdx+1. The result is
	// always within [0, max delay].
	Delay(attemptIdx int, out classify.Outcome) time.Duration

	// RecordSuccess notes a successful call; retried says whether any retry
	// happened. Refunds quota on the standard/adaptive variants.
	RecordSuccess(retried bool)

	// RecordFailure notes a retryable failure, letting the variant apply
	// timeout penalties or throttling feedback.
	RecordFailure(out classify.Outcome)
}

// NoRetry performs exactly one attempt and never consumes quota.
type NoRetry struct {
	id string
}

func NewNoRetry() *NoRetry {
	return &NoRetry{id: uuid.NewString()}
}

func (s *NoRetry) ID() string                         { return s.id }
func (s *NoRetry) MaxAttempts() int                   { return 1 }
func (s *NoRetry) ClassifierName() string             { return "" }
func (s *NoRetry) Prepare(context.Context) error      { return nil }
func (s *NoRetry) AcquireToken() (*quota.Token, bool) { return nil, false }
func (s *NoRetry) Quota() *quota.TokenBucket          { return nil }
func (s *NoRetry) RecordSuccess(bool)                 {}
func (s *NoRetry) RecordFailure(classify.Outcome)     {}

func (s *NoRetry) Delay(int, classify.Outcome) time.Duration { return 0 }
