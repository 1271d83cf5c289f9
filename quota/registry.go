package quota

import (
	"errors"
	"strings"
	"sync"

	"github.com/perihelion-io/backstop/internal"
)

// Registry is a thread-safe name → TokenBucket map. Integrations that build
// strategies by hand can use it to share one bucket across several of them.
type Registry struct {
	mu sync.RWMutex
	m  map[string]*TokenBucket
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]*TokenBucket)}
}

// Register registers a bucket under name. It returns an error if the
// registry is nil, the name is empty, or the bucket is nil.
func (r *Registry) Register(name string, b *TokenBucket) error {
	if r == nil {
		return errors.New("registry is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("bucket name cannot be empty")
	}
	if internal.IsTypedNil(b) {
		return errors.New("bucket cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.m == nil {
		r.m = make(map[string]*TokenBucket)
	}
	r.m[name] = b
	return nil
}

// MustRegister registers a bucket and panics on error.
func (r *Registry) MustRegister(name string, b *TokenBucket) {
	if err := r.Register(name, b); err != nil {
		panic("quota.Registry.MustRegister: " + err.Error())
	}
}

func (r *Registry) Get(name string) (*TokenBucket, bool) {
	if r == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}

	r.mu.RLock()
	b, ok := r.m[name]
	r.mu.RUnlock()
	return b, ok && b != nil
}
