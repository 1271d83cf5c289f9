package observe

import "context"

// NoopObserver implements Observer with no-op methods.
type NoopObserver struct{}

func (NoopObserver) OnStart(context.Context, string)                        {}
func (NoopObserver) OnAttempt(context.Context, string, AttemptRecord)       {}
func (NoopObserver) OnQuotaDecision(context.Context, string, QuotaDecision) {}
func (NoopObserver) OnSuccess(context.Context, string, Timeline)            {}
func (NoopObserver) OnFailure(context.Context, string, Timeline)            {}
