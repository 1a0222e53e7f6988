package model

import "errors"

// Error kinds shared by every component. Specific errors wrap one of these
// so handlers can map a whole family to one status code.
var (
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrUnauthenticated  = errors.New("actor identity missing")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError ties a field-specific error to ErrValidation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() []error { return []error{e.Err, ErrValidation} }

// Invalid wraps err as a validation failure.
func Invalid(err error) error {
	return &ValidationError{Err: err}
}
