package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/perihelion-io/backstop/classify"
	"github.com/perihelion-io/backstop/policy"
	"github.com/perihelion-io/backstop/quota"
)

// timeoutPenalty is the extra quota drained by a timeout-class failure, on
// top of the token the retry itself consumed.
const timeoutPenalty = 1

// Standard retries with capped exponential backoff, jitter, and a shared
// retry-quota token bucket: delay = min(maxDelay, baseDelay * 2^attemptIdx),
// randomized per the configured jitter kind. Each retry consumes one token;
// a success after at least one retry refunds one.
type Standard struct {
	id     string
	cfg    policy.Config
	bucket *quota.TokenBucket
}

// NewStandard builds a Standard strategy over a resolved configuration and
// a shared bucket. A nil bucket gets one sized from cfg.InitialTokens.
func NewStandard(cfg policy.Config, bucket *quota.TokenBucket) *Standard {
	if bucket == nil {
		bucket = quota.NewTokenBucket(cfg.InitialTokens)
	}
	return &Standard{
		id:     uuid.NewString(),
		cfg:    cfg,
		bucket: bucket,
	}
}

func (s *Standard) ID() string                    { return s.id }
func (s *Standard) MaxAttempts() int              { return s.cfg.MaxAttempts }
func (s *Standard) ClassifierName() string        { return s.cfg.Classifier }
func (s *Standard) Prepare(context.Context) error { return nil }
func (s *Standard) Quota() *quota.TokenBucket     { return s.bucket }

func (s *Standard) AcquireToken() (*quota.Token, bool) {
	return s.bucket.Take()
}

func (s *Standard) Delay(attemptIdx int, out classify.Outcome) time.Duration {
	if out.BackoffOverride > 0 {
		return capDelay(out.BackoffOverride, s.cfg.MaxDelay)
	}

	base := float64(s.cfg.BaseDelay)
	if attemptIdx < 0 {
		attemptIdx = 0
	}
	raw := base * math.Pow(2, float64(attemptIdx))
	if raw > float64(s.cfg.MaxDelay) || math.IsInf(raw, 1) {
		raw = float64(s.cfg.MaxDelay)
	}

	return capDelay(applyJitter(time.Duration(raw), s.cfg.Jitter), s.cfg.MaxDelay)
}

func (s *Standard) RecordSuccess(retried bool) {
	if retried {
		s.bucket.Refund(1)
	}
}

func (s *Standard) RecordFailure(out classify.Outcome) {
	if out.Timeout {
		s.bucket.Penalize(timeoutPenalty)
	}
}

func applyJitter(d time.Duration, kind policy.JitterKind) time.Duration {
	switch kind {
	case policy.JitterNone, policy.JitterUnset:
		return d
	case policy.JitterFull:
		return time.Duration(rand.Float64() * float64(d))
	case policy.JitterEqual:
		half := float64(d) / 2
		return time.Duration(half + rand.Float64()*half)
	default:
		return d
	}
}

func capDelay(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
