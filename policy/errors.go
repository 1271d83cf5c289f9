package policy

import "fmt"

// ConfigurationError indicates fundamentally invalid retry settings. It is
// fatal and surfaced at client construction; the resolver never retries it.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("backstop: invalid retry config: %s=%q (%s)", e.Field, e.Value, e.Reason)
}
