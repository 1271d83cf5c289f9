package retry

import (
	"fmt"

	"github.com/perihelion-io/backstop/policy"
	"github.com/perihelion-io/backstop/quota"
)

// Resolver produces retry strategies for one client. It validates the
// client-level options once, at client construction, and owns the retry
// quota bucket every resolved strategy shares. Resolving per operation
// instead of per request keeps quota accounting client-wide.
type Resolver struct {
	client    policy.Options
	clientCfg policy.Config
	bucket    *quota.TokenBucket
}

// NewResolver validates client and sizes the shared quota bucket from the
// resolved initial_tokens. It fails with *policy.ConfigurationError on
// invalid settings.
func NewResolver(client policy.Options) (*Resolver, error) {
	cfg, err := policy.Merge(policy.Options{}, client)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		client:    client,
		clientCfg: cfg,
		bucket:    quota.NewTokenBucket(cfg.InitialTokens),
	}, nil
}

// Quota exposes the client-wide token bucket.
func (r *Resolver) Quota() *quota.TokenBucket {
	return r.bucket
}

// Resolve merges operation-level overrides over the client defaults and
// returns the matching strategy variant. Every strategy a Resolver returns
// shares the client's quota bucket, so initial_tokens cannot be overridden
// per operation.
func (r *Resolver) Resolve(operation policy.Options) (Strategy, error) {
	if operation.InitialTokens != 0 {
		return nil, &policy.ConfigurationError{
			Field:  "initial_tokens",
			Value:  fmt.Sprint(operation.InitialTokens),
			Reason: "client-scoped, cannot be set per operation",
		}
	}

	cfg, err := policy.Merge(operation, r.client)
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case policy.ModeNone:
		return NewNoRetry(), nil
	case policy.ModeAdaptive:
		return NewAdaptive(cfg, r.bucket), nil
	default:
		return NewStandard(cfg, r.bucket), nil
	}
}

// ResolveStrategy is the one-shot form of NewResolver + Resolve for callers
// with a single operation shape.
func ResolveStrategy(client, operation policy.Options) (Strategy, error) {
	r, err := NewResolver(client)
	if err != nil {
		return nil, err
	}
	return r.Resolve(operation)
}
