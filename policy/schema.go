package policy

import (
	"fmt"
	"time"
)

// Mode selects the retry strategy variant resolved for a client.
type Mode string

const (
	// ModeUnset defers to the client default (and ultimately ModeStandard).
	ModeUnset Mode = ""
	// ModeStandard retries with capped exponential backoff, jitter, and a
	// shared retry-quota token bucket.
	ModeStandard Mode = "standard"
	// ModeAdaptive is ModeStandard plus a client-side send-rate limiter
	// driven by throttling feedback.
	ModeAdaptive Mode = "adaptive"
	// ModeNone disables retries entirely.
	ModeNone Mode = "none"
)

// JitterKind selects how a computed backoff delay is randomized.
type JitterKind string

const (
	JitterUnset JitterKind = ""
	JitterNone  JitterKind = "none"
	JitterFull  JitterKind = "full"
	JitterEqual JitterKind = "equal"
)

// Built-in fallbacks, applied when neither the operation nor the client
// sets a field.
const (
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = 100 * time.Millisecond
	DefaultMaxDelay      = 20 * time.Second
	DefaultInitialTokens = 10
	DefaultJitter        = JitterFull
	DefaultMode          = ModeStandard
)

// Options is the recognized retry configuration surface. The zero value of
// every field means "unset": merging falls through to the next precedence
// level. Negative values are rejected at merge time.
type Options struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts,omitempty"`

	// Mode selects the strategy variant: standard, adaptive, or none.
	Mode Mode `json:"retry_mode,omitempty"`

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration `json:"base_delay,omitempty"`

	// MaxDelay caps every computed backoff delay.
	MaxDelay time.Duration `json:"max_delay,omitempty"`

	// InitialTokens sizes the retry-quota bucket. Client-scoped: the bucket
	// is shared by every operation on the client, so an operation-level
	// override is a configuration error.
	InitialTokens int `json:"initial_tokens,omitempty"`

	// Jitter selects the randomization applied to backoff delays.
	Jitter JitterKind `json:"jitter,omitempty"`

	// Classifier names a registered outcome classifier. Empty uses the
	// executor's default.
	Classifier string `json:"classifier,omitempty"`
}

// IsZero reports whether no field is set.
func (o Options) IsZero() bool {
	return o == Options{}
}

// Config is a fully-resolved, validated retry configuration. It is produced
// once per client/operation pair by Merge and never mutated afterwards.
type Config struct {
	MaxAttempts   int
	Mode          Mode
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	InitialTokens int
	Jitter        JitterKind
	Classifier    string
}

// Default returns the built-in fallback configuration.
func Default() Config {
	return Config{
		MaxAttempts:   DefaultMaxAttempts,
		Mode:          DefaultMode,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		InitialTokens: DefaultInitialTokens,
		Jitter:        DefaultJitter,
	}
}

// Merge resolves operation-level overrides over client-level defaults over
// the built-in fallbacks (precedence: operation > client > default) and
// validates the result. It is intended to run once per client construction,
// not once per request.
func Merge(operation, client Options) (Config, error) {
	cfg := Default()

	if v := pickInt(operation.MaxAttempts, client.MaxAttempts); v != 0 {
		cfg.MaxAttempts = v
	}
	if v := pickMode(operation.Mode, client.Mode); v != ModeUnset {
		cfg.Mode = v
	}
	if v := pickDuration(operation.BaseDelay, client.BaseDelay); v != 0 {
		cfg.BaseDelay = v
	}
	if v := pickDuration(operation.MaxDelay, client.MaxDelay); v != 0 {
		cfg.MaxDelay = v
	}
	if v := pickInt(operation.InitialTokens, client.InitialTokens); v != 0 {
		cfg.InitialTokens = v
	}
	if v := pickJitter(operation.Jitter, client.Jitter); v != JitterUnset {
		cfg.Jitter = v
	}
	if operation.Classifier != "" {
		cfg.Classifier = operation.Classifier
	} else {
		cfg.Classifier = client.Classifier
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxAttempts < 1 {
		return &ConfigurationError{
			Field:  "max_attempts",
			Value:  fmt.Sprint(c.MaxAttempts),
			Reason: "must be at least 1",
		}
	}
	switch c.Mode {
	case ModeStandard, ModeAdaptive, ModeNone:
	default:
		return &ConfigurationError{
			Field:  "retry_mode",
			Value:  string(c.Mode),
			Reason: "unknown retry mode",
		}
	}
	if c.BaseDelay < 0 {
		return &ConfigurationError{
			Field:  "base_delay_ms",
			Value:  c.BaseDelay.String(),
			Reason: "must not be negative",
		}
	}
	if c.MaxDelay < 0 {
		return &ConfigurationError{
			Field:  "max_delay_ms",
			Value:  c.MaxDelay.String(),
			Reason: "must not be negative",
		}
	}
	if c.MaxDelay < c.BaseDelay {
		return &ConfigurationError{
			Field:  "max_delay_ms",
			Value:  c.MaxDelay.String(),
			Reason: "must not be smaller than base_delay_ms",
		}
	}
	if c.InitialTokens < 0 {
		return &ConfigurationError{
			Field:  "initial_tokens",
			Value:  fmt.Sprint(c.InitialTokens),
			Reason: "must not be negative",
		}
	}
	switch c.Jitter {
	case JitterNone, JitterFull, JitterEqual:
	default:
		return &ConfigurationError{
			Field:  "jitter",
			Value:  string(c.Jitter),
			Reason: "unknown jitter kind",
		}
	}
	return nil
}

func pickInt(operation, client int) int {
	if operation != 0 {
		return operation
	}
	return client
}

func pickDuration(operation, client time.Duration) time.Duration {
	if operation != 0 {
		return operation
	}
	return client
}

func pickMode(operation, client Mode) Mode {
	if operation != ModeUnset {
		return operation
	}
	return client
}

func pickJitter(operation, client JitterKind) JitterKind {
	if operation != JitterUnset {
		return operation
	}
	return client
}
