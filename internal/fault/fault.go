// Package fault holds the error kinds shared by the prefiltering core.
//
// Configuration problems are reported by wrapping ErrInvalidConfig and are
// always detected before any render target is allocated. Failures while a
// capture pass is running are reported as *BackendError; the contents of the
// targets involved are undefined afterwards.
package fault

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks a rejected parameter set (non-power-of-two sizes,
// empty sequences, missing sources).
var ErrInvalidConfig = errors.New("invalid configuration")

// BackendError reports a failure of the dispatch backend during a pass.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Invalid wraps ErrInvalidConfig with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
}

// IsBackend reports whether err carries a *BackendError.
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
