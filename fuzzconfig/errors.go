package fuzzconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = errors.New("invalid fuzz configuration")

	// ErrMissingConfig is returned by Load after it wrote a default file in
	// place of a missing one.
	ErrMissingConfig = errors.New("fuzz configuration does not exist")
)

// ConfigurationError reports a missing or inconsistent field. It is always
// raised before any chain or worker process is started.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
