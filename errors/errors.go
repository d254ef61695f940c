// Package errors defines the error vocabulary shared by every QRFS package.
//
// All fallible operations in this module return a [DriverError] rather than
// a bare error so that callers at the mount-bridge boundary (spec.md §6) can
// map a failure to one of the POSIX-like codes it enumerates without string
// matching.
package errors

import "fmt"

// DriverError is an error built from a [DiskoError] kind. WithMessage keeps
// the error it extends in the Unwrap chain, so a kind given more context
// with [DiskoError.WithMessage] still matches its sentinel value with
// errors.Is. WrapError puts the wrapped error in the chain instead, so
// errors.Is matches that error and not the kind.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
	Unwrap() error
}

type customDriverError struct {
	message       string
	originalError error
}

func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customDriverError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
