// errors.go defines the error classes the handlers translate into HTTP
// responses. Validation failures happen before any write and are safe to show
// verbatim; write failures describe how far a multi-row submission got,
// because partially written state is left in place for the admin to reconcile
// rather than rolled back.
package services

import "errors"

// ValidationError rejects input before any state exists. Its message is
// user-facing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
