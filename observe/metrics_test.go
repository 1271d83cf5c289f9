package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/perihelion-io/backstop/classify"
)

func TestMetricsObserver_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewMetricsObserver(reg)
	ctx := context.Background()

	obs.OnAttempt(ctx, "s", AttemptRecord{
		Outcome: classify.Outcome{Kind: classify.OutcomeRetryable},
		Backoff: 200 * time.Millisecond,
	})
	obs.OnAttempt(ctx, "s", AttemptRecord{
		Outcome: classify.Outcome{Kind: classify.OutcomeSuccess},
	})

	require.Equal(t, 1.0, testutil.ToFloat64(obs.attempts.WithLabelValues("retryable")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.attempts.WithLabelValues("success")))
}

func TestMetricsObserver_TerminalResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewMetricsObserver(reg)
	ctx := context.Background()

	obs.OnSuccess(ctx, "s", Timeline{Attempts: []AttemptRecord{{}}})
	obs.OnFailure(ctx, "s", Timeline{
		FinalErr: errors.New("boom"),
		Attempts: []AttemptRecord{{Outcome: classify.Outcome{Kind: classify.OutcomeRetryable}}},
	})
	obs.OnFailure(ctx, "s", Timeline{
		FinalErr: errors.New("bad request"),
		Attempts: []AttemptRecord{{Outcome: classify.Outcome{Kind: classify.OutcomeNonRetryable}}},
	})

	require.Equal(t, 1.0, testutil.ToFloat64(obs.calls.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.calls.WithLabelValues("exhausted")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.calls.WithLabelValues("failure")))
}

func TestMetricsObserver_QuotaDenied(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewMetricsObserver(reg)
	ctx := context.Background()

	obs.OnQuotaDecision(ctx, "s", QuotaDecision{Allowed: true})
	obs.OnQuotaDecision(ctx, "s", QuotaDecision{Allowed: false})
	obs.OnQuotaDecision(ctx, "s", QuotaDecision{Allowed: false})

	require.Equal(t, 2.0, testutil.ToFloat64(obs.quotaDenied))
}

func TestNewMetricsObserver_NilRegisterer(t *testing.T) {
	obs := NewMetricsObserver(nil)
	require.NotNil(t, obs)
	obs.OnAttempt(context.Background(), "s", AttemptRecord{})
}
