// Package http retries HTTP requests with replayable bodies, draining and
// closing failed response bodies between attempts.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/perihelion-io/backstop/observe"
	"github.com/perihelion-io/backstop/retry"
)

// drainLimit caps how much of a failed response body is read before the
// connection is released for reuse.
const drainLimit = 4096

// Do executes req with retries driven by s. The request body must be
// replayable (GetBody set) for anything other than a single attempt.
// Non-2xx responses and transport errors surface as *StatusError so the
// "http" classifier can apply status and idempotency rules.
func Do(ctx context.Context, exec *retry.Executor, s retry.Strategy, client *http.Client, req *http.Request) (*http.Response, observe.Timeline, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return nil, observe.Timeline{}, errors.New("backstop: request body is not replayable (GetBody is nil)")
	}

	op := func(ctx context.Context) (*http.Response, error) {
		outReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			outReq.Body = body
		}

		resp, err := client.Do(outReq)
		if err != nil {
			return nil, &StatusError{Method: req.Method, Err: err}
		}
		if err := CheckResponse(resp); err != nil {
			return nil, err
		}
		return resp, nil
	}

	return retry.DoValueWithTimeline(ctx, exec, s, op)
}

// Client wraps an *http.Client so every request runs through an executor
// and strategy. Zero-value fields fall back to the package defaults.
type Client struct {
	HTTP     *http.Client
	Executor *retry.Executor
	Strategy retry.Strategy
}

// Do executes req with retries. See the package-level Do for body
// replayability requirements.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	exec := c.Executor
	if exec == nil {
		exec = retry.DefaultExecutor()
	}
	resp, _, err := Do(req.Context(), exec, c.Strategy, c.HTTP, req)
	return resp, err
}

// CheckResponse converts a non-2xx response into a *StatusError, draining
// and closing the body so the underlying connection can be reused. A 2xx
// response passes through untouched with its body open.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	_, _ = io.CopyN(io.Discard, resp.Body, drainLimit)
	resp.Body.Close()

	method := ""
	if resp.Request != nil {
		method = resp.Request.Method
	}
	return &StatusError{
		Code:   resp.StatusCode,
		Method: method,
		Header: resp.Header,
	}
}

// StatusError carries a failed response's status, method, and headers, or
// the transport error when no response arrived. It implements
// classify.HTTPError.
type StatusError struct {
	Code   int
	Method string
	Header http.Header
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "http status " + strconv.Itoa(e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int { return e.Code }
func (e *StatusError) HTTPMethod() string  { return e.Method }

// RetryAfter reports the server's Retry-After header, in either seconds or
// HTTP-date form.
func (e *StatusError) RetryAfter() (time.Duration, bool) {
	if e.Header == nil {
		return 0, false
	}
	s := e.Header.Get("Retry-After")
	if s == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(s); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
