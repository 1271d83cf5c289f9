package retry

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/perihelion-io/backstop/classify"
	"github.com/perihelion-io/backstop/observe"
)

// Operation is one attemptable unit of work.
type Operation func(ctx context.Context) error

// OperationValue is an Operation that produces a value.
type OperationValue[T any] func(ctx context.Context) (T, error)

// Executor drives the attempt loop for a resolved Strategy. It is the
// single entry point generated operation code uses: one Executor per
// client, shared across concurrent calls.
type Executor struct {
	observer          observe.Observer
	clock             func() time.Time
	sleep             func(context.Context, time.Duration) error
	classifiers       *classify.Registry
	defaultClassifier classify.Classifier
	recoverPanics     bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithObserver sets the lifecycle observer.
func WithObserver(o observe.Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithClock sets the clock function.
func WithClock(f func() time.Time) ExecutorOption {
	return func(e *Executor) { e.clock = f }
}

// WithClassifiers sets the classifier registry strategies select from by
// name.
func WithClassifiers(r *classify.Registry) ExecutorOption {
	return func(e *Executor) { e.classifiers = r }
}

// WithDefaultClassifier sets the classifier used when a strategy names none.
func WithDefaultClassifier(c classify.Classifier) ExecutorOption {
	return func(e *Executor) { e.defaultClassifier = c }
}

// WithRecoverPanics captures panics in user code and classifiers, reporting
// them as *PanicError instead of unwinding.
func WithRecoverPanics(recover bool) ExecutorOption {
	return func(e *Executor) { e.recoverPanics = recover }
}

// NewExecutor creates an Executor. Unset options fall back to a noop
// observer, the wall clock, and the built-in classifiers.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}

	if e.observer == nil {
		e.observer = observe.NoopObserver{}
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.sleep == nil {
		e.sleep = sleepWithContext
	}
	if e.classifiers == nil {
		e.classifiers = classify.NewRegistry()
		classify.RegisterBuiltins(e.classifiers)
	}
	if e.defaultClassifier == nil {
		e.defaultClassifier = classify.DefaultClassifier{}
	}
	return e
}

// Do executes op under s until success, a terminal failure, or exhaustion.
func (e *Executor) Do(ctx context.Context, s Strategy, op Operation) error {
	_, err := DoValue(ctx, e, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoWithTimeline is Do returning the full attempt timeline.
func (e *Executor) DoWithTimeline(ctx context.Context, s Strategy, op Operation) (observe.Timeline, error) {
	_, tl, err := DoValueWithTimeline(ctx, e, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return tl, err
}

// DoValue executes op under s and returns its value.
func DoValue[T any](ctx context.Context, e *Executor, s Strategy, op OperationValue[T]) (T, error) {
	val, _, err := doValue(ctx, e, s, op)
	return val, err
}

// DoValueWithTimeline is DoValue returning the full attempt timeline.
func DoValueWithTimeline[T any](ctx context.Context, e *Executor, s Strategy, op OperationValue[T]) (T, observe.Timeline, error) {
	return doValue(ctx, e, s, op)
}

func doValue[T any](ctx context.Context, e *Executor, s Strategy, op OperationValue[T]) (T, observe.Timeline, error) {
	var zero T

	if ctx == nil {
		ctx = context.Background()
	}
	if e == nil {
		e = NewExecutor()
	}
	if s == nil {
		s = DefaultStrategy()
	}

	tl := observe.Timeline{StrategyID: s.ID(), Start: e.clock()}
	fail := func(last T, err error) (T, observe.Timeline, error) {
		tl.End = e.clock()
		tl.FinalErr = err
		e.observer.OnFailure(ctx, s.ID(), tl)
		return last, tl, err
	}

	classifier, err := e.resolveClassifier(s)
	if err != nil {
		return fail(zero, err)
	}

	maxAttempts := s.MaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	e.observer.OnStart(ctx, s.ID())

	var last T
	var lastErr error
	var backoff time.Duration
	retried := false

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fail(last, err)
		}

		if err := s.Prepare(ctx); err != nil {
			return fail(last, err)
		}

		start := e.clock()
		val, opErr, panicErr := runAttempt(ctx, e.recoverPanics, op)
		if panicErr != nil {
			return fail(last, panicErr)
		}
		last, lastErr = val, opErr

		out, panicErr := e.classifyAttempt(classifier, val, opErr)
		if panicErr != nil {
			return fail(last, panicErr)
		}

		rec := observe.AttemptRecord{
			Attempt:   attempt,
			StartTime: start,
			EndTime:   e.clock(),
			Outcome:   out,
			Err:       opErr,
			Backoff:   backoff,
		}
		tl.Attempts = append(tl.Attempts, rec)
		e.observer.OnAttempt(ctx, s.ID(), rec)

		switch out.Kind {
		case classify.OutcomeSuccess:
			s.RecordSuccess(retried)
			tl.End = e.clock()
			e.observer.OnSuccess(ctx, s.ID(), tl)
			return val, tl, nil
		case classify.OutcomeNonRetryable, classify.OutcomeAbort:
			return fail(last, terminalError(ctx, lastErr, out))
		}

		// Retryable.
		s.RecordFailure(out)

		if attempt == maxAttempts-1 {
			return fail(last, &ExhaustedError{
				Attempts: attempt + 1,
				Reason:   ReasonMaxAttempts,
				Err:      lastErr,
			})
		}

		token, allowed := s.AcquireToken()
		decision := observe.QuotaDecision{
			Attempt:   attempt,
			Allowed:   allowed,
			Remaining: quotaRemaining(s),
		}
		tl.Quota = append(tl.Quota, decision)
		e.observer.OnQuotaDecision(ctx, s.ID(), decision)

		if !allowed {
			return fail(last, &ExhaustedError{
				Attempts: attempt + 1,
				Reason:   ReasonQuotaExhausted,
				Err:      lastErr,
			})
		}

		backoff = s.Delay(attempt, out)
		if err := e.sleep(ctx, backoff); err != nil {
			// The token was acquired but its attempt never ran.
			token.Refund()
			return fail(last, err)
		}
		retried = true
	}

	return last, tl, lastErr
}

func (e *Executor) resolveClassifier(s Strategy) (classify.Classifier, error) {
	name := s.ClassifierName()
	if name == "" {
		return e.defaultClassifier, nil
	}
	c, ok := e.classifiers.Get(name)
	if !ok {
		return nil, &NoClassifierError{Name: name}
	}
	return c, nil
}

func runAttempt[T any](ctx context.Context, recoverPanics bool, op OperationValue[T]) (val T, opErr error, panicErr error) {
	if recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				panicErr = &PanicError{
					Component: "operation",
					Value:     r,
					Stack:     debug.Stack(),
				}
			}
		}()
	}
	val, opErr = op(ctx)
	return val, opErr, nil
}

func (e *Executor) classifyAttempt(classifier classify.Classifier, val any, opErr error) (out classify.Outcome, panicErr error) {
	if e.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				out = classify.Outcome{Kind: classify.OutcomeAbort, Reason: "panic_in_classifier"}
				panicErr = &PanicError{
					Component: "classifier",
					Value:     r,
					Stack:     debug.Stack(),
				}
			}
		}()
	}

	out = classifier.Classify(val, opErr)
	if out.Kind == classify.OutcomeUnknown {
		if out.Reason == "" {
			out.Reason = "unknown_outcome"
		}
		out.Kind = classify.OutcomeAbort
	}
	if out.Reason == "" {
		out.Reason = out.Kind.String()
	}
	return out, nil
}

func quotaRemaining(s Strategy) int {
	if b := s.Quota(); b != nil {
		return b.Remaining()
	}
	return 0
}

// terminalError surfaces the original cause: the context error when the
// failure was a cancellation, otherwise the operation error itself.
func terminalError(ctx context.Context, opErr error, out classify.Outcome) error {
	if ctx != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(opErr, context.Canceled) || errors.Is(opErr, context.DeadlineExceeded)) {
			return ctxErr
		}
	}
	if opErr != nil {
		return opErr
	}
	if out.Reason != "" {
		return errors.New("backstop: " + out.Reason)
	}
	return errors.New("backstop: operation failed")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
