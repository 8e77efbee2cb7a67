// Package errs defines the error kinds returned by the public operations of the module.
//
// Errors are always returned wrapped, callers discriminate them with errors.Is:
//
//	if errors.Is(err, errs.ErrConfiguration) { ... }
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports invalid or missing parameters or keys:
	// unknown parameter set, zero-valued or out of range parameter,
	// operation invoked before key generation, keys generated for other parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedOperation reports an operation that cannot be carried
	// for the given inputs, e.g. a plaintext modulus not dividing the ciphertext modulus.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// Configuration returns a new error wrapping ErrConfiguration.
func Configuration(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, a...))
}

// Unsupported returns a new error wrapping ErrUnsupportedOperation.
func Unsupported(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedOperation, fmt.Sprintf(format, a...))
}
