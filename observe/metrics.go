package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/perihelion-io/backstop/classify"
)

// MetricsObserver exports retry activity as Prometheus metrics.
type MetricsObserver struct {
	calls        *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	quotaDenied  prometheus.Counter
	backoffSecs  prometheus.Histogram
	attemptsHist prometheus.Histogram
}

// NewMetricsObserver builds a MetricsObserver and registers its collectors
// with reg. It panics on duplicate registration, matching
// prometheus.MustRegister.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstop",
			Name:      "calls_total",
			Help:      "Calls executed with a retry strategy, by terminal result.",
		}, []string{"result"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstop",
			Name:      "attempts_total",
			Help:      "Individual attempts, by classified outcome.",
		}, []string{"outcome"}),
		quotaDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "backstop",
			Name:      "quota_denied_total",
			Help:      "Retries abandoned because the quota bucket was empty.",
		}),
		backoffSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "backstop",
			Name:      "backoff_seconds",
			Help:      "Backoff delays applied before retry attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		attemptsHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "backstop",
			Name:      "attempts_per_call",
			Help:      "Attempts made per call.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(o.calls, o.attempts, o.quotaDenied, o.backoffSecs, o.attemptsHist)
	}
	return o
}

func (o *MetricsObserver) OnStart(context.Context, string) {}

func (o *MetricsObserver) OnAttempt(_ context.Context, _ string, rec AttemptRecord) {
	o.attempts.WithLabelValues(rec.Outcome.Kind.String()).Inc()
	if rec.Backoff > 0 {
		o.backoffSecs.Observe(rec.Backoff.Seconds())
	}
}

func (o *MetricsObserver) OnQuotaDecision(_ context.Context, _ string, d QuotaDecision) {
	if !d.Allowed {
		o.quotaDenied.Inc()
	}
}

func (o *MetricsObserver) OnSuccess(_ context.Context, _ string, tl Timeline) {
	o.calls.WithLabelValues("success").Inc()
	o.attemptsHist.Observe(float64(len(tl.Attempts)))
}

func (o *MetricsObserver) OnFailure(_ context.Context, _ string, tl Timeline) {
	result := "failure"
	if len(tl.Attempts) > 0 {
		last := tl.Attempts[len(tl.Attempts)-1]
		if last.Outcome.Kind == classify.OutcomeRetryable {
			result = "exhausted"
		}
	}
	o.calls.WithLabelValues(result).Inc()
	o.attemptsHist.Observe(float64(len(tl.Attempts)))
}
