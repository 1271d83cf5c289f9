package retry

import (
	"context"
	"time"

	"github.com/perihelion-io/backstop/policy"
	"github.com/perihelion-io/backstop/quota"
)

// sleepRecorder replaces the executor's sleep with one that records the
// requested delays and returns immediately.
type sleepRecorder struct {
	delays []time.Duration
	err    error // returned on the next call when set
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.err != nil {
		err := r.err
		r.err = nil
		return err
	}
	r.delays = append(r.delays, d)
	return nil
}

// newTestExecutor returns an executor that never sleeps for real.
func newTestExecutor(opts ...ExecutorOption) (*Executor, *sleepRecorder) {
	e := NewExecutor(opts...)
	rec := &sleepRecorder{}
	e.sleep = rec.sleep
	return e, rec
}

// newStandard builds a standard strategy with jitter disabled so delays are
// deterministic in tests.
func newStandard(maxAttempts, tokens int) (*Standard, *quota.TokenBucket) {
	cfg := policy.Config{
		MaxAttempts:   maxAttempts,
		Mode:          policy.ModeStandard,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		InitialTokens: tokens,
		Jitter:        policy.JitterNone,
	}
	bucket := quota.NewTokenBucket(tokens)
	return NewStandard(cfg, bucket), bucket
}
