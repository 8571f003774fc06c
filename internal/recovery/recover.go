// Package recovery converts panics raised by user-supplied codecs and
// iterators into errors, so a broken codec fails one segment instead of the
// whole process.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrPanic is matched by every error returned for a recovered panic.
var ErrPanic = errors.New("panic recovered")

// PanicError carries a recovered panic value.
type PanicError struct {
	Operation string
	Value     any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Operation, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrPanic }

// GRPCStatus reports the panic as an internal error.
func (e *PanicError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, e.Error())
}

// RecoverToError wraps a function call with panic recovery.
// If the function panics, the panic is logged with its stack trace and
// returned as a *PanicError.
//
// Example:
//
//	err := recovery.RecoverToError(logger, "Unmarshal", func() error {
//	    return table.Decode(r)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(logger, operation, r)
		}
	}()

	return fn()
}

// RecoverToValue wraps a function that returns a value and error.
// If the function panics, returns the zero value and a *PanicError.
//
// Example:
//
//	data, err := recovery.RecoverToValue(logger, "Marshal", func() ([]byte, error) {
//	    return encode(table)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = recovered(logger, operation, r)
		}
	}()

	return fn()
}

func recovered(logger *slog.Logger, operation string, r any) error {
	stack := debug.Stack()

	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(stack),
	)

	return &PanicError{Operation: operation, Value: r, Stack: stack}
}
