package presto

import (
	"math"

	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

type int32Codec struct{}

// Int32 returns the codec for int32 values, carried as integer.
func Int32() Codec[int32] { return int32Codec{} }

func (int32Codec) Type() types.Type { return types.Integer() }

func (int32Codec) View(v *int32) Encodable {
	return EncodeFunc(func(w wire.Writer) error { return w.WriteInt(int64(*v)) })
}

func (int32Codec) Seed(expected types.Type) (Decoder[int32], error) {
	if err := expectKind[int32](expected, types.KindInteger); err != nil {
		return nil, err
	}
	return DecodeFunc[int32](func(r wire.Reader) (int32, error) {
		n, err := readInt32(r)
		return int32(n), err
	}), nil
}

type intCodec struct{}

// Int returns the codec for Go int values, carried as integer. Values
// outside the 32-bit range fail to encode with ErrOutOfRange.
func Int() Codec[int] { return intCodec{} }

func (intCodec) Type() types.Type { return types.Integer() }

func (intCodec) View(v *int) Encodable {
	return EncodeFunc(func(w wire.Writer) error {
		if *v < math.MinInt32 || *v > math.MaxInt32 {
			return &Error{
				Err:    ErrOutOfRange,
				Type:   types.Integer(),
				GoType: "int",
				Detail: "value exceeds 32-bit integer range",
			}
		}
		return w.WriteInt(int64(*v))
	})
}

func (intCodec) Seed(expected types.Type) (Decoder[int], error) {
	if err := expectKind[int](expected, types.KindInteger); err != nil {
		return nil, err
	}
	return DecodeFunc[int](func(r wire.Reader) (int, error) {
		n, err := readInt32(r)
		return int(n), err
	}), nil
}

// readInt32 reads an integer token and checks it fits the integer type.
func readInt32(r wire.Reader) (int64, error) {
	n, err := r.ReadInt()
	if err != nil {
		return 0, decodeError(err)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, decodeError(wire.Malformed("integer %d overflows 32-bit integer", n))
	}
	return n, nil
}

type stringCodec struct{}

// String returns the codec for string values, carried as varchar.
func String() Codec[string] { return stringCodec{} }

func (stringCodec) Type() types.Type { return types.Varchar() }

func (stringCodec) View(v *string) Encodable {
	return EncodeFunc(func(w wire.Writer) error { return w.WriteString(*v) })
}

func (stringCodec) Seed(expected types.Type) (Decoder[string], error) {
	if err := expectKind[string](expected, types.KindVarchar); err != nil {
		return nil, err
	}
	return DecodeFunc[string](func(r wire.Reader) (string, error) {
		s, err := r.ReadString()
		if err != nil {
			return "", decodeError(err)
		}
		return s, nil
	}), nil
}

func expectKind[T any](expected types.Type, kind types.Kind) error {
	if expected.Kind() != kind {
		return shapeError(expected, goTypeName[T](), "expected %s", kind)
	}
	return nil
}
