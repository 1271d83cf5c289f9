package observe

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogObserver logs call lifecycle events through a logrus logger. Attempts
// log at debug level; terminal failures at warn.
type LogObserver struct {
	Logger *logrus.Logger
}

// NewLogObserver returns a LogObserver. A nil logger uses the logrus
// standard logger.
func NewLogObserver(logger *logrus.Logger) *LogObserver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) OnStart(_ context.Context, id string) {
	o.Logger.WithField("strategy", id).Debug("retry: call started")
}

func (o *LogObserver) OnAttempt(_ context.Context, id string, rec AttemptRecord) {
	fields := logrus.Fields{
		"strategy": id,
		"attempt":  rec.Attempt,
		"outcome":  rec.Outcome.Kind.String(),
		"reason":   rec.Outcome.Reason,
	}
	if rec.Backoff > 0 {
		fields["backoff"] = rec.Backoff.String()
	}
	if rec.Err != nil {
		fields["error"] = rec.Err.Error()
	}
	o.Logger.WithFields(fields).Debug("retry: attempt finished")
}

func (o *LogObserver) OnQuotaDecision(_ context.Context, id string, d QuotaDecision) {
	entry := o.Logger.WithFields(logrus.Fields{
		"strategy":  id,
		"attempt":   d.Attempt,
		"allowed":   d.Allowed,
		"remaining": d.Remaining,
	})
	if d.Allowed {
		entry.Debug("retry: quota token acquired")
	} else {
		entry.Warn("retry: quota exhausted")
	}
}

func (o *LogObserver) OnSuccess(_ context.Context, id string, tl Timeline) {
	o.Logger.WithFields(logrus.Fields{
		"strategy": id,
		"attempts": len(tl.Attempts),
		"retries":  tl.Retries(),
		"elapsed":  tl.End.Sub(tl.Start).String(),
	}).Debug("retry: call succeeded")
}

func (o *LogObserver) OnFailure(_ context.Context, id string, tl Timeline) {
	fields := logrus.Fields{
		"strategy": id,
		"attempts": len(tl.Attempts),
		"elapsed":  tl.End.Sub(tl.Start).String(),
	}
	if tl.FinalErr != nil {
		fields["error"] = tl.FinalErr.Error()
	}
	o.Logger.WithFields(fields).Warn("retry: call failed")
}
