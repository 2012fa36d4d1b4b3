// Package errs centralizes the error-wrapping conventions used outside the
// VM's own runtime-error/stack-trace path: the CLI driver uses it to wrap a
// failure reading a script file with context before mapping it to an exit
// code.
package errs

import "github.com/pkg/errors"

// Wrap annotates err with a message, or returns nil if err is nil.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message, or returns nil if err is
// nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New returns a new error with the given message, with a stack trace
// attached for diagnostic logging.
func New(message string) error {
	return errors.New(message)
}
