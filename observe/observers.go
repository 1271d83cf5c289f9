package observe

import "context"

// Observer receives lifecycle callbacks for a single call.
type Observer interface {
	OnStart(ctx context.Context, strategyID string)
	OnAttempt(ctx context.Context, strategyID string, rec AttemptRecord)
	OnQuotaDecision(ctx context.Context, strategyID string, d QuotaDecision)
	OnSuccess(ctx context.Context, strategyID string, tl Timeline)
	OnFailure(ctx context.Context, strategyID string, tl Timeline)
}

// BaseObserver implements Observer with no-op methods.
//
// Users can embed BaseObserver to implement only the callbacks they need.
type BaseObserver struct{}

func (BaseObserver) OnStart(context.Context, string)                  {}
func (BaseObserver) OnAttempt(context.Context, string, AttemptRecord) {}
func (BaseObserver) OnQuotaDecision(context.Context, string, QuotaDecision) {
}
func (BaseObserver) OnSuccess(context.Context, string, Timeline) {}
func (BaseObserver) OnFailure(context.Context, string, Timeline) {}

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	Observers []Observer
}

func (m MultiObserver) OnStart(ctx context.Context, id string) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnStart(ctx, id)
		}
	}
}

func (m MultiObserver) OnAttempt(ctx context.Context, id string, rec AttemptRecord) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnAttempt(ctx, id, rec)
		}
	}
}

func (m MultiObserver) OnQuotaDecision(ctx context.Context, id string, d QuotaDecision) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnQuotaDecision(ctx, id, d)
		}
	}
}

func (m MultiObserver) OnSuccess(ctx context.Context, id string, tl Timeline) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnSuccess(ctx, id, tl)
		}
	}
}

func (m MultiObserver) OnFailure(ctx context.Context, id string, tl Timeline) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnFailure(ctx, id, tl)
		}
	}
}
