package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is a retry profile loaded from a YAML document: client-level
// defaults plus named per-operation overrides.
//
//	client:
//	  max_attempts: 5
//	  retry_mode: standard
//	  base_delay_ms: 100
//	  max_delay_ms: 2000
//	  initial_tokens: 10
//	operations:
//	  GetObject:
//	    max_attempts: 2
type Profile struct {
	Client     Options
	Operations map[string]Options
}

// Operation returns the override block for name, or a zero Options when the
// profile has none.
func (p Profile) Operation(name string) Options {
	return p.Operations[name]
}

type fileProfile struct {
	Client     fileOptions            `yaml:"client"`
	Operations map[string]fileOptions `yaml:"operations"`
}

// fileOptions mirrors Options with the millisecond integer fields the
// on-disk format uses.
type fileOptions struct {
	MaxAttempts   int    `yaml:"max_attempts"`
	RetryMode     string `yaml:"retry_mode"`
	BaseDelayMs   int64  `yaml:"base_delay_ms"`
	MaxDelayMs    int64  `yaml:"max_delay_ms"`
	InitialTokens int    `yaml:"initial_tokens"`
	Jitter        string `yaml:"jitter"`
	Classifier    string `yaml:"classifier"`
}

func (f fileOptions) toOptions() Options {
	return Options{
		MaxAttempts:   f.MaxAttempts,
		Mode:          Mode(f.RetryMode),
		BaseDelay:     time.Duration(f.BaseDelayMs) * time.Millisecond,
		MaxDelay:      time.Duration(f.MaxDelayMs) * time.Millisecond,
		InitialTokens: f.InitialTokens,
		Jitter:        JitterKind(f.Jitter),
		Classifier:    f.Classifier,
	}
}

// ParseProfile decodes a YAML retry profile. Values are validated lazily at
// Merge time; ParseProfile only rejects malformed documents.
func ParseProfile(data []byte) (Profile, error) {
	var raw fileProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("backstop: parse retry profile: %w", err)
	}

	p := Profile{Client: raw.Client.toOptions()}
	if len(raw.Operations) > 0 {
		p.Operations = make(map[string]Options, len(raw.Operations))
		for name, opts := range raw.Operations {
			p.Operations[name] = opts.toOptions()
		}
	}
	return p, nil
}

// LoadProfile reads and decodes a YAML retry profile from path.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("backstop: read retry profile: %w", err)
	}
	return ParseProfile(data)
}
