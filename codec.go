package presto

import (
	"errors"
	"reflect"

	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

// Codec associates a native Go type T with a wire type.
//
// Codecs are immutable values built from the constructors in this package
// (Int32, String, Slice, Map, Row, ...) or implemented directly for new
// native types. They are safe for concurrent use.
type Codec[T any] interface {
	// Type describes the wire shape of T. Every call returns an equal
	// descriptor.
	Type() types.Type

	// View returns an encoder that borrows *v. The encoder reads *v when
	// Encode is called and never copies element data.
	View(v *T) Encodable

	// Seed validates expected against T and returns a decoder bound to it.
	// A mismatch fails with ErrInvalidShape before any token is read.
	Seed(expected types.Type) (Decoder[T], error)
}

// Encodable writes one value to a wire.Writer.
type Encodable interface {
	Encode(w wire.Writer) error
}

// EncodeFunc adapts a function to Encodable.
type EncodeFunc func(w wire.Writer) error

func (f EncodeFunc) Encode(w wire.Writer) error { return f(w) }

// Decoder reads one value of type T. A decoder is bound to the descriptor
// it was seeded with and is used for a single Decode call.
type Decoder[T any] interface {
	Decode(r wire.Reader) (T, error)
}

// DecodeFunc adapts a function to Decoder.
type DecodeFunc[T any] func(r wire.Reader) (T, error)

func (f DecodeFunc[T]) Decode(r wire.Reader) (T, error) { return f(r) }

// Encode writes v with codec c.
func Encode[T any](w wire.Writer, c Codec[T], v *T) error {
	return c.View(v).Encode(w)
}

// Decode seeds c with expected and reads one value.
func Decode[T any](r wire.Reader, c Codec[T], expected types.Type) (T, error) {
	dec, err := c.Seed(expected)
	if err != nil {
		var zero T
		return zero, err
	}
	return dec.Decode(r)
}

// goTypeName returns the Go type name used in error messages.
func goTypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// convertCodec implements Convert.
type convertCodec[T, U any] struct {
	base   Codec[U]
	encode func(T) (U, error)
	decode func(U) (T, error)
}

// Convert builds a codec for T on top of the codec for its wire
// representation U. encode and decode convert between the two; an error
// from decode fails the read with ErrMalformedWireValue.
//
// Example, a time.Time carried as varchar:
//
//	ts := presto.Convert(presto.String(),
//	    func(t time.Time) (string, error) { return t.Format(time.RFC3339), nil },
//	    func(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) },
//	)
func Convert[T, U any](base Codec[U], encode func(T) (U, error), decode func(U) (T, error)) Codec[T] {
	return convertCodec[T, U]{base: base, encode: encode, decode: decode}
}

func (c convertCodec[T, U]) Type() types.Type { return c.base.Type() }

func (c convertCodec[T, U]) View(v *T) Encodable {
	return EncodeFunc(func(w wire.Writer) error {
		u, err := c.encode(*v)
		if err != nil {
			return &Error{Err: ErrOutOfRange, Type: c.base.Type(), GoType: goTypeName[T](), Cause: err}
		}
		return c.base.View(&u).Encode(w)
	})
}

func (c convertCodec[T, U]) Seed(expected types.Type) (Decoder[T], error) {
	dec, err := c.base.Seed(expected)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Err == ErrInvalidShape {
			c := *e
			c.GoType = goTypeName[T]()
			return nil, &c
		}
		return nil, err
	}
	return DecodeFunc[T](func(r wire.Reader) (T, error) {
		var zero T
		u, err := dec.Decode(r)
		if err != nil {
			return zero, err
		}
		v, err := c.decode(u)
		if err != nil {
			return zero, &Error{Err: ErrMalformedWireValue, Type: expected, GoType: goTypeName[T](), Cause: err}
		}
		return v, nil
	}), nil
}
