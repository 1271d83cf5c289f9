// Package profile supplies per-operation retry options to client
// constructors: statically, from a YAML profile on disk, or from a custom
// source wrapped in a TTL cache.
package profile

import (
	"context"

	"github.com/perihelion-io/backstop/policy"
)

// Provider supplies the retry options configured for an operation. The
// returned options feed a retry.Resolver as the operation-level overrides.
type Provider interface {
	// OperationOptions returns the options for operation. It must return
	// ErrProfileNotFound when no override exists for the name.
	OperationOptions(ctx context.Context, operation string) (policy.Options, error)
}

// StaticProvider is an in-process Provider backed by a map.
type StaticProvider struct {
	Operations map[string]policy.Options
}

func (p *StaticProvider) OperationOptions(_ context.Context, operation string) (policy.Options, error) {
	if p == nil || p.Operations == nil {
		return policy.Options{}, ErrProfileNotFound
	}
	opts, ok := p.Operations[operation]
	if !ok {
		return policy.Options{}, ErrProfileNotFound
	}
	return opts, nil
}
