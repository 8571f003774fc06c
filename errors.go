package presto

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/presto-go/internal/recovery"
	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

// Standard errors returned by the presto package.
var (
	// ErrInvalidShape indicates a descriptor handed to Seed does not match the
	// codec's native type, e.g. a map descriptor for a slice codec or a row
	// descriptor of the wrong arity.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrUnsupportedRowType indicates a table row codec whose type is not a
	// non-empty row.
	ErrUnsupportedRowType = errors.New("unsupported row type")

	// ErrMalformedWireValue indicates the wire input carried a token that does
	// not match what the decoder expected. It is the same value as
	// wire.ErrMalformed, so either sentinel matches.
	ErrMalformedWireValue = wire.ErrMalformed

	// ErrOutOfRange indicates a native value that cannot be represented by its
	// descriptor, e.g. an int beyond the 32-bit integer range.
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedEncoding indicates an unknown segment encoding name.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrPanic indicates a codec or iterator panicked while RecoverPanics
	// was enabled.
	ErrPanic = recovery.ErrPanic
)

// Error describes a failed encode or decode.
//
// Err holds one of the package sentinels (or a user codec's own error) and
// is matched by errors.Is. Path locates the failing value from the root of
// the decoded value, e.g. "$.data[1].tags[0]".
type Error struct {
	Err    error
	Type   types.Type
	GoType string
	Path   string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	msg := e.Err.Error()
	if e.Cause != nil && errors.Is(e.Cause, e.Err) {
		msg = e.Cause.Error()
	}
	b.WriteString(msg)
	if e.Path != "" {
		b.WriteString(" at $")
		b.WriteString(e.Path)
	}
	if e.Type.IsValid() {
		b.WriteString(": descriptor ")
		b.WriteString(e.Type.String())
	}
	if e.GoType != "" {
		b.WriteString(" for ")
		b.WriteString(e.GoType)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil && !errors.Is(e.Cause, e.Err) {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// GRPCStatus maps the error to a gRPC status, so services embedding the
// codec can return it from a handler unchanged.
func (e *Error) GRPCStatus() *status.Status {
	code := codes.Unknown
	switch {
	case errors.Is(e.Err, ErrInvalidShape):
		code = codes.InvalidArgument
	case errors.Is(e.Err, ErrUnsupportedRowType):
		code = codes.FailedPrecondition
	case errors.Is(e.Err, ErrMalformedWireValue):
		code = codes.DataLoss
	case errors.Is(e.Err, ErrOutOfRange):
		code = codes.OutOfRange
	}
	return status.New(code, e.Error())
}

func shapeError(expected types.Type, goType, format string, args ...any) *Error {
	return &Error{
		Err:    ErrInvalidShape,
		Type:   expected,
		GoType: goType,
		Detail: fmt.Sprintf(format, args...),
	}
}

// decodeError converts an error returned by a reader or a child decoder
// into an *Error, keeping an existing one as is.
func decodeError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, wire.ErrMalformed) || errors.Is(err, wire.ErrFraming) {
		return &Error{Err: ErrMalformedWireValue, Cause: err}
	}
	return &Error{Err: err}
}

// atPath returns a copy of err located at seg followed by its own path.
// Child errors may be shared between decodes, so they are never modified.
func atPath(err error, seg string) error {
	if err == nil {
		return nil
	}
	e := *decodeError(err)
	e.Path = seg + e.Path
	return &e
}

func indexSeg(i int) string {
	return fmt.Sprintf("[%d]", i)
}

func fieldSeg(name string, i int) string {
	if name == "" || !isPathIdent(name) {
		if name != "" {
			return fmt.Sprintf("[%q]", name)
		}
		return indexSeg(i)
	}
	return "." + name
}

func isPathIdent(s string) bool {
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
