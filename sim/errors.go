package sim

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure raised by the engine wraps exactly one of these,
// so callers can classify with errors.Is.
var (
	// ErrConfig marks an invalid simulation setup, detected before the run starts.
	ErrConfig = errors.New("configuration error")
	// ErrCausality marks an attempt to move time backwards.
	ErrCausality = errors.New("causality violation")
	// ErrResourceInvariant marks a broken pool or job-lifecycle invariant.
	ErrResourceInvariant = errors.New("resource invariant violation")
)

// SimError describes which invariant failed and at what virtual time.
type SimError struct {
	Kind  error
	Clock int64
	Msg   string
}

func (e *SimError) Error() string {
	return fmt.Sprintf("%v at tick %d: %s", e.Kind, e.Clock, e.Msg)
}

func (e *SimError) Unwrap() error {
	return e.Kind
}

func newSimError(kind error, clock int64, format string, args ...any) *SimError {
	return &SimError{Kind: kind, Clock: clock, Msg: fmt.Sprintf(format, args...)}
}

func configError(format string, args ...any) error {
	return newSimError(ErrConfig, 0, format, args...)
}
