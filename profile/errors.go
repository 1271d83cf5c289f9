package profile

import "errors"

var (
	// ErrProfileNotFound indicates the provider has no options for the
	// requested operation.
	ErrProfileNotFound = errors.New("backstop: retry profile not found")
	// ErrProviderUnavailable indicates the provider could not be reached.
	ErrProviderUnavailable = errors.New("backstop: profile provider unavailable")
)
