package quota

import "sync"

// TokenBucket tracks a shared capacity of retry tokens across all
// operations on a client. Retryable failures drain it, successes refill it,
// bounding the aggregate retry load the client may generate.
//
// The level is always within [0, capacity]; refunds and penalties clamp to
// that range. All methods are safe for concurrent use.
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   int
}

// NewTokenBucket returns a bucket holding capacity tokens. It starts full.
// A non-positive capacity yields a bucket that never grants tokens.
func NewTokenBucket(capacity int) *TokenBucket {
	if capacity < 0 {
		capacity = 0
	}
	return &TokenBucket{capacity: capacity, tokens: capacity}
}

// Acquire removes one token. It never blocks; it returns false when the
// bucket is empty.
func (b *TokenBucket) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Take is Acquire returning a Token handle. The handle lets the
// cancellation path refund a token that was acquired but never spent on an
// attempt.
func (b *TokenBucket) Take() (*Token, bool) {
	if !b.Acquire() {
		return nil, false
	}
	return &Token{bucket: b}, true
}

// Refund returns n tokens, clamped at capacity. Used on the success path.
func (b *TokenBucket) Refund(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens += n
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// Penalize removes n extra tokens, clamped at zero. Used on failure classes
// that should drain the bucket faster than normal, such as timeouts.
func (b *TokenBucket) Penalize(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens -= n
	if b.tokens < 0 {
		b.tokens = 0
	}
}

// Remaining returns the current token level.
func (b *TokenBucket) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Capacity returns the bucket's fixed capacity.
func (b *TokenBucket) Capacity() int {
	return b.capacity
}

// Token is a unit of permission to retry, held between acquisition and the
// end of the attempt it gated. A token left unrefunded stays consumed.
type Token struct {
	bucket *TokenBucket
	once   sync.Once
}

// Refund returns the token to its bucket. It is idempotent: only the first
// call has an effect.
func (t *Token) Refund() {
	if t == nil || t.bucket == nil {
		return
	}
	t.once.Do(func() {
		t.bucket.Refund(1)
	})
}
