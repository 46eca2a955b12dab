package cookie

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedAlgorithm is returned when a configured HMAC algorithm is unknown
	ErrUnsupportedAlgorithm = errors.New("unsupported hmac algorithm")
	// ErrMissingKey is returned when a key is referenced but no key material is available
	ErrMissingKey = errors.New("missing key material")
	// ErrInvalidTimeout is returned for a malformed or out-of-range timeout string
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// ConfigurationError reports a fatal problem with the cookie settings.
// It is never produced by verification.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(setting string, err error) error {
	return &ConfigurationError{Setting: setting, Err: err}
}
