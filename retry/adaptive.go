package retry

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/perihelion-io/backstop/classify"
	"github.com/perihelion-io/backstop/policy"
	"github.com/perihelion-io/backstop/quota"
)

const (
	// First throttle drops an unconstrained client to this many attempts/sec.
	adaptiveInitialRate = 1.0
	// Successive throttles multiply the rate by this factor.
	adaptiveBeta = 0.7
	// Rate never drops below this floor.
	adaptiveMinRate = 0.05
	// Each success grows the rate by this factor.
	adaptiveGrowth = 1.1
	// Past this rate the limiter is considered recovered and removed.
	adaptiveRestoreRate = 100.0
)

// Adaptive is the standard strategy plus a client-side send-rate limiter.
// Throttling responses shrink the rate multiplicatively; successes grow it
// back until the limiter disengages. Until the first throttle is observed
// the limiter imposes no delay.
type Adaptive struct {
	*Standard

	limiter *rate.Limiter

	mu          sync.Mutex
	currentRate float64 // attempts/sec; 0 means unconstrained
}

func NewAdaptive(cfg policy.Config, bucket *quota.TokenBucket) *Adaptive {
	return &Adaptive{
		Standard: NewStandard(cfg, bucket),
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
}

// Prepare blocks until the limiter grants a slot, or ctx is done.
func (s *Adaptive) Prepare(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

func (s *Adaptive) RecordSuccess(retried bool) {
	s.Standard.RecordSuccess(retried)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRate == 0 {
		return
	}
	s.currentRate *= adaptiveGrowth
	if s.currentRate >= adaptiveRestoreRate {
		s.currentRate = 0
		s.limiter.SetLimit(rate.Inf)
		return
	}
	s.limiter.SetLimit(rate.Limit(s.currentRate))
}

func (s *Adaptive) RecordFailure(out classify.Outcome) {
	s.Standard.RecordFailure(out)
	if !out.Throttle {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRate == 0 {
		s.currentRate = adaptiveInitialRate
	} else {
		s.currentRate *= adaptiveBeta
		if s.currentRate < adaptiveMinRate {
			s.currentRate = adaptiveMinRate
		}
	}
	s.limiter.SetLimit(rate.Limit(s.currentRate))
}

// throttleRate reports the current constrained rate, 0 when unconstrained.
// Exposed for tests.
func (s *Adaptive) throttleRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRate
}
