package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/perihelion-io/backstop/classify"
	"github.com/perihelion-io/backstop/policy"
)

func TestExecutor_Do_Trivial(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(3, 10)

	called := 0
	err := e.Do(context.Background(), s, func(context.Context) error {
		called++
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if called != 1 {
		t.Fatalf("called = %d, want 1", called)
	}
}

// A continuously failing retryable operation makes exactly MaxAttempts
// attempts and then fails with an ExhaustedError.
func TestExecutor_Do_ExactlyMaxAttempts(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		e, _ := newTestExecutor()
		s, _ := newStandard(n, 100)

		calls := 0
		err := e.Do(context.Background(), s, func(context.Context) error {
			calls++
			return errors.New("nope")
		})
		if calls != n {
			t.Fatalf("calls = %d, want %d", calls, n)
		}
		if !errors.Is(err, ErrExhausted) {
			t.Fatalf("err = %v, want ErrExhausted", err)
		}

		var ex *ExhaustedError
		if !errors.As(err, &ex) {
			t.Fatalf("err = %T, want *ExhaustedError", err)
		}
		if ex.Attempts != n || ex.Reason != ReasonMaxAttempts {
			t.Fatalf("ExhaustedError = %+v", ex)
		}
	}
}

func TestExecutor_Do_PreservesLastCause(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(3, 10)

	boom := errors.New("boom")
	err := e.Do(context.Background(), s, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("cause chain lost: %v", err)
	}
}

// A non-retryable failure on the first attempt results in exactly one
// attempt, surfacing the original error.
func TestExecutor_Do_NonRetryableStopsImmediately(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(5, 10)

	boom := errors.New("bad request")
	calls := 0
	err := e.Do(context.Background(), s, func(context.Context) error {
		calls++
		return classify.NonRetryable(boom)
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want original cause", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("non-retryable failure must not report exhaustion")
	}
}

func TestExecutor_Do_QuotaExhaustion(t *testing.T) {
	e, _ := newTestExecutor()
	s, bucket := newStandard(5, 1)

	calls := 0
	err := e.Do(context.Background(), s, func(context.Context) error {
		calls++
		return errors.New("nope")
	})

	// One free first attempt plus the single budgeted retry.
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Reason != ReasonQuotaExhausted {
		t.Fatalf("err = %v, want quota exhaustion", err)
	}
	if bucket.Remaining() != 0 {
		t.Fatalf("Remaining = %d, want 0", bucket.Remaining())
	}
}

// Success after k retryable failures refunds one token net of the k
// consumed.
func TestExecutor_Do_SuccessRefundsOneToken(t *testing.T) {
	e, _ := newTestExecutor()
	s, bucket := newStandard(5, 5)

	calls := 0
	err := e.Do(context.Background(), s, func(context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("nope")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	// 2 consumed, 1 refunded.
	if bucket.Remaining() != 4 {
		t.Fatalf("Remaining = %d, want 4", bucket.Remaining())
	}
}

func TestExecutor_Do_FirstAttemptSuccessLeavesQuotaFull(t *testing.T) {
	e, _ := newTestExecutor()
	s, bucket := newStandard(5, 5)

	if err := e.Do(context.Background(), s, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("err = %v", err)
	}
	if bucket.Remaining() != 5 {
		t.Fatalf("Remaining = %d, want 5", bucket.Remaining())
	}
}

// Worked example: base 100ms, max 2s, 5 attempts, 5 tokens; three throttling
// failures followed by success make 4 attempts and leave 3 tokens.
func TestExecutor_Do_ThrottleExample(t *testing.T) {
	throttleClassifier := classify.ClassifierFunc(func(_ any, err error) classify.Outcome {
		if err == nil {
			return classify.Outcome{Kind: classify.OutcomeSuccess}
		}
		return classify.Outcome{Kind: classify.OutcomeRetryable, Reason: "throttling", Throttle: true}
	})

	e, rec := newTestExecutor(WithDefaultClassifier(throttleClassifier))
	s, bucket := newStandard(5, 5)

	calls := 0
	err := e.Do(context.Background(), s, func(context.Context) error {
		calls++
		if calls <= 3 {
			return errors.New("throttled")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
	if bucket.Remaining() != 3 {
		t.Fatalf("Remaining = %d, want 3", bucket.Remaining())
	}

	// Backoff doubles from the base and never exceeds the cap.
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Fatalf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
}

func TestExecutor_Do_TimeoutFailuresDrainFaster(t *testing.T) {
	timeoutClassifier := classify.ClassifierFunc(func(_ any, err error) classify.Outcome {
		if err == nil {
			return classify.Outcome{Kind: classify.OutcomeSuccess}
		}
		return classify.Outcome{Kind: classify.OutcomeRetryable, Reason: "timeout", Timeout: true}
	})

	e, _ := newTestExecutor(WithDefaultClassifier(timeoutClassifier))
	s, bucket := newStandard(3, 10)

	calls := 0
	_ = e.Do(context.Background(), s, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("deadline")
		}
		return nil
	})

	// One retry: 1 token acquired + 1 penalty, then 1 refunded on success.
	if bucket.Remaining() != 9 {
		t.Fatalf("Remaining = %d, want 9", bucket.Remaining())
	}
}

func TestExecutor_Do_CancellationDuringBackoffRefundsToken(t *testing.T) {
	e, rec := newTestExecutor()
	s, bucket := newStandard(5, 5)
	rec.err = context.Canceled

	calls := 0
	err := e.Do(context.Background(), s, func(context.Context) error {
		calls++
		return errors.New("nope")
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// The token acquired for the abandoned retry went back.
	if bucket.Remaining() != 5 {
		t.Fatalf("Remaining = %d, want 5", bucket.Remaining())
	}
}

func TestExecutor_Do_AbortsOnCanceledContext(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(5, 5)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := e.Do(ctx, s, func(context.Context) error {
		calls++
		cancel()
		return ctx.Err()
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExecutor_Do_PreCanceledContext(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(5, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := e.Do(ctx, s, func(context.Context) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDoValue_ReturnsValue(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(5, 5)

	calls := 0
	val, err := DoValue(context.Background(), e, s, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("nope")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if val != 42 {
		t.Fatalf("val = %d, want 42", val)
	}
}

func TestDoValue_NilExecutorAndStrategy(t *testing.T) {
	val, err := DoValue(context.Background(), nil, nil, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || val != "ok" {
		t.Fatalf("got (%q, %v), want (ok, nil)", val, err)
	}
}

func TestExecutor_Do_UnknownClassifierName(t *testing.T) {
	e, _ := newTestExecutor()
	cfg := policy.Config{MaxAttempts: 3, Mode: policy.ModeStandard, BaseDelay: time.Millisecond, MaxDelay: time.Second, InitialTokens: 5, Jitter: policy.JitterNone, Classifier: "nonexistent"}
	s := NewStandard(cfg, nil)

	err := e.Do(context.Background(), s, func(context.Context) error { return nil })
	var nce *NoClassifierError
	if !errors.As(err, &nce) || nce.Name != "nonexistent" {
		t.Fatalf("err = %v, want NoClassifierError", err)
	}
}

func TestExecutor_Do_NamedClassifierFromRegistry(t *testing.T) {
	reg := classify.NewRegistry()
	reg.Register("never", classify.ClassifierFunc(func(_ any, err error) classify.Outcome {
		if err == nil {
			return classify.Outcome{Kind: classify.OutcomeSuccess}
		}
		return classify.Outcome{Kind: classify.OutcomeNonRetryable}
	}))

	e, _ := newTestExecutor(WithClassifiers(reg))
	cfg := policy.Config{MaxAttempts: 5, Mode: policy.ModeStandard, BaseDelay: time.Millisecond, MaxDelay: time.Second, InitialTokens: 5, Jitter: policy.JitterNone, Classifier: "never"}
	s := NewStandard(cfg, nil)

	calls := 0
	_ = e.Do(context.Background(), s, func(context.Context) error {
		calls++
		return errors.New("nope")
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 with non-retrying classifier", calls)
	}
}

func TestExecutor_Do_RecoversPanics(t *testing.T) {
	e, _ := newTestExecutor(WithRecoverPanics(true))
	s, _ := newStandard(3, 5)

	err := e.Do(context.Background(), s, func(context.Context) error {
		panic("kaboom")
	})
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PanicError", err)
	}
	if pe.Component != "operation" || pe.Value != "kaboom" {
		t.Fatalf("PanicError = %+v", pe)
	}
}

func TestExecutor_Do_PanicUnwindsByDefault(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(3, 5)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic to unwind")
		}
	}()
	_ = e.Do(context.Background(), s, func(context.Context) error {
		panic("kaboom")
	})
}

func TestExecutor_Do_NoRetryStrategy(t *testing.T) {
	e, _ := newTestExecutor()
	s := NewNoRetry()

	calls := 0
	err := e.Do(context.Background(), s, func(context.Context) error {
		calls++
		return errors.New("nope")
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestDoWithTimeline_RecordsAttemptsAndQuota(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(5, 5)

	calls := 0
	tl, err := e.DoWithTimeline(context.Background(), s, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("nope")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if tl.StrategyID != s.ID() {
		t.Fatalf("StrategyID = %q, want %q", tl.StrategyID, s.ID())
	}
	if len(tl.Attempts) != 3 {
		t.Fatalf("attempts recorded = %d, want 3", len(tl.Attempts))
	}
	if len(tl.Quota) != 2 {
		t.Fatalf("quota decisions = %d, want 2", len(tl.Quota))
	}
	if tl.Retries() != 2 {
		t.Fatalf("Retries = %d, want 2", tl.Retries())
	}
	for _, d := range tl.Quota {
		if !d.Allowed {
			t.Fatalf("quota decision unexpectedly denied: %+v", d)
		}
	}
	if tl.Attempts[0].Backoff != 0 {
		t.Fatalf("first attempt should carry no backoff")
	}
	if tl.Attempts[1].Backoff == 0 {
		t.Fatalf("retry attempt should record its backoff")
	}
}

func TestDoWithTimeline_FinalError(t *testing.T) {
	e, _ := newTestExecutor()
	s, _ := newStandard(2, 5)

	tl, err := e.DoWithTimeline(context.Background(), s, func(context.Context) error {
		return errors.New("nope")
	})
	if err == nil || tl.FinalErr == nil {
		t.Fatalf("expected terminal failure in timeline")
	}
	if len(tl.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(tl.Attempts))
	}
}
