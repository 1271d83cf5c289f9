package profile

import (
	"context"

	"github.com/perihelion-io/backstop/policy"
)

// FileProvider serves operation options from a YAML retry profile loaded
// once at construction.
type FileProvider struct {
	profile policy.Profile
}

// NewFileProvider loads the profile at path.
func NewFileProvider(path string) (*FileProvider, error) {
	p, err := policy.LoadProfile(path)
	if err != nil {
		return nil, err
	}
	return &FileProvider{profile: p}, nil
}

// ClientOptions returns the profile's client-level defaults.
func (p *FileProvider) ClientOptions() policy.Options {
	return p.profile.Client
}

func (p *FileProvider) OperationOptions(_ context.Context, operation string) (policy.Options, error) {
	opts := p.profile.Operation(operation)
	if opts.IsZero() {
		return policy.Options{}, ErrProfileNotFound
	}
	return opts, nil
}
