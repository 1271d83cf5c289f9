// Package backstop retries operations with capped exponential backoff, a
// shared retry-token quota, and pluggable outcome classification.
package backstop

import (
	"context"

	"github.com/perihelion-io/backstop/observe"
	"github.com/perihelion-io/backstop/policy"
	"github.com/perihelion-io/backstop/retry"
)

// Options is the user-facing retry configuration. The zero value means
// "unset" for every field.
type Options = policy.Options

// Strategy drives attempt scheduling for one client.
type Strategy = retry.Strategy

// NewStrategy resolves client-level options into a strategy backed by its
// own retry-token bucket.
func NewStrategy(client Options) (Strategy, error) {
	return retry.ResolveStrategy(client, Options{})
}

// NewResolver returns a resolver that validates client once and hands out
// per-operation strategies sharing one quota bucket.
func NewResolver(client Options) (*retry.Resolver, error) {
	return retry.NewResolver(client)
}

// StandardStrategy returns the shared default standard strategy.
func StandardStrategy() Strategy {
	return retry.DefaultStrategy()
}

// Do executes op using the default executor and the default standard
// strategy. All calls routed through it share one quota bucket.
func Do(ctx context.Context, op retry.Operation) error {
	return retry.DefaultExecutor().Do(ctx, retry.DefaultStrategy(), op)
}

// DoValue executes op using the default executor and the default standard
// strategy.
func DoValue[T any](ctx context.Context, op retry.OperationValue[T]) (T, error) {
	return retry.DoValue(ctx, retry.DefaultExecutor(), retry.DefaultStrategy(), op)
}

// DoWithTimeline executes op with the defaults and returns the attempt
// timeline alongside the result.
func DoWithTimeline(ctx context.Context, op retry.Operation) (observe.Timeline, error) {
	return retry.DefaultExecutor().DoWithTimeline(ctx, retry.DefaultStrategy(), op)
}

// DoValueWithTimeline executes op with the defaults and returns the attempt
// timeline alongside the result.
func DoValueWithTimeline[T any](ctx context.Context, op retry.OperationValue[T]) (T, observe.Timeline, error) {
	return retry.DoValueWithTimeline(ctx, retry.DefaultExecutor(), retry.DefaultStrategy(), op)
}
