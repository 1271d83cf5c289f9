package classify

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// HTTPError is a classify-owned interface that lets the HTTP classifier
// recognize retry semantics without importing transport packages.
//
// Implementations should use status code 0 for transport-level errors.
type HTTPError interface {
	HTTPStatusCode() int
	HTTPMethod() string
	RetryAfter() (time.Duration, bool)
}

// HTTPClassifier classifies outcomes for HTTP-like operations based on an
// HTTPError in the error chain.
//
// 5xx responses and transport errors are retryable for idempotent methods.
// 408 and 429 are retryable; 429 is additionally marked as throttling and
// 408 as a timeout. A Retry-After hint becomes a BackoffOverride. All other
// 4xx are terminal.
type HTTPClassifier struct {
	// Retryable4xx is an optional set of additional retryable 4xx status
	// codes. If nil, only 408 and 429 retry.
	Retryable4xx map[int]struct{}
}

func (c HTTPClassifier) Classify(_ any, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Reason: "success"}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeAbort, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Kind: OutcomeRetryable, Reason: "context_deadline_exceeded", Timeout: true}
	}

	var he HTTPError
	if !errors.As(err, &he) {
		return Outcome{
			Kind:   OutcomeNonRetryable,
			Reason: "classifier_type_mismatch",
			Attributes: map[string]string{
				"expected_type": "classify.HTTPError",
				"got_type":      typeString(err),
			},
		}
	}

	status := he.HTTPStatusCode()
	method := strings.ToUpper(strings.TrimSpace(he.HTTPMethod()))
	idempotent := isIdempotentMethod(method)

	out := Outcome{
		Kind:   OutcomeNonRetryable,
		Reason: "http_non_retryable_status",
		Attributes: map[string]string{
			"status": strconv.Itoa(status),
			"method": method,
		},
	}

	if status >= 200 && status < 300 {
		out.Kind = OutcomeSuccess
		out.Reason = "success"
		return out
	}

	if status == 0 {
		if idempotent {
			out.Kind = OutcomeRetryable
			out.Reason = "http_transport_error"
		} else {
			out.Reason = "http_non_idempotent"
		}
		return out
	}

	if status >= 500 && status <= 599 {
		if idempotent {
			out.Kind = OutcomeRetryable
			out.Reason = "http_5xx"
		} else {
			out.Reason = "http_non_idempotent"
		}
		return out
	}

	if status == 408 || status == 429 || c.retryable4xx(status) {
		if idempotent {
			out.Kind = OutcomeRetryable
			out.Reason = "http_" + strconv.Itoa(status)
			out.Throttle = status == 429
			out.Timeout = status == 408
			if d, ok := he.RetryAfter(); ok && d > 0 {
				out.BackoffOverride = d
				out.Attributes["retry_after"] = d.String()
			}
		} else {
			out.Reason = "http_non_idempotent"
		}
		return out
	}

	// All other 4xx are terminal.
	return out
}

func (c HTTPClassifier) retryable4xx(status int) bool {
	if c.Retryable4xx == nil {
		return false
	}
	_, ok := c.Retryable4xx[status]
	return ok
}

func isIdempotentMethod(method string) bool {
	switch method {
	case "GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE":
		return true
	default:
		return false
	}
}

func typeString(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
