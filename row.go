package presto

import (
	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

// RowField is one member of a row or tuple codec for struct type T.
// Build it with Field or Elem.
type RowField[T any] interface {
	field() types.Field
	view(v *T) Encodable
	seed(expected types.Type) (func(r wire.Reader, dst *T) error, error)
}

type rowField[T, F any] struct {
	name  string
	codec Codec[F]
	get   func(*T) *F
}

// Field declares a named row member. get returns the address of the member
// inside a *T.
//
//	presto.Field("id", presto.Int32(), func(u *User) *int32 { return &u.ID })
func Field[T, F any](name string, codec Codec[F], get func(*T) *F) RowField[T] {
	return rowField[T, F]{name: name, codec: codec, get: get}
}

// Elem declares an anonymous tuple member.
func Elem[T, F any](codec Codec[F], get func(*T) *F) RowField[T] {
	return rowField[T, F]{codec: codec, get: get}
}

func (f rowField[T, F]) field() types.Field {
	return types.Field{Name: f.name, Type: f.codec.Type()}
}

func (f rowField[T, F]) view(v *T) Encodable {
	return f.codec.View(f.get(v))
}

func (f rowField[T, F]) seed(expected types.Type) (func(r wire.Reader, dst *T) error, error) {
	dec, err := f.codec.Seed(expected)
	if err != nil {
		return nil, err
	}
	return func(r wire.Reader, dst *T) error {
		v, err := dec.Decode(r)
		if err != nil {
			return err
		}
		*f.get(dst) = v
		return nil
	}, nil
}

type rowCodec[T any] struct {
	typ    types.Type
	fields []RowField[T]
}

// Row returns the codec for struct type T carried as row(name1 T1, ...),
// with one Field per member in wire order.
func Row[T any](fields ...RowField[T]) Codec[T] {
	tf := make([]types.Field, len(fields))
	for i, f := range fields {
		tf[i] = f.field()
	}
	return rowCodec[T]{typ: types.RowOf(tf...), fields: fields}
}

// Tuple returns the codec for struct type T carried as an anonymous row.
// Member names given with Field are ignored.
func Tuple[T any](elems ...RowField[T]) Codec[T] {
	te := make([]types.Type, len(elems))
	for i, f := range elems {
		te[i] = f.field().Type
	}
	return rowCodec[T]{typ: types.TupleOf(te...), fields: elems}
}

func (c rowCodec[T]) Type() types.Type { return c.typ }

func (c rowCodec[T]) View(v *T) Encodable {
	return EncodeFunc(func(w wire.Writer) error {
		if err := w.BeginArray(len(c.fields)); err != nil {
			return err
		}
		for _, f := range c.fields {
			if err := f.view(v).Encode(w); err != nil {
				return err
			}
		}
		return w.EndArray()
	})
}

// Seed accepts row and tuple descriptors alike, matching members by
// position; the two share the row category on the wire.
func (c rowCodec[T]) Seed(expected types.Type) (Decoder[T], error) {
	if k := expected.Kind(); k != types.KindRow && k != types.KindTuple {
		return nil, shapeError(expected, goTypeName[T](), "expected row")
	}
	if expected.NumFields() != len(c.fields) {
		return nil, shapeError(expected, goTypeName[T](),
			"expected %d fields, descriptor has %d", len(c.fields), expected.NumFields())
	}
	decoders := make([]func(wire.Reader, *T) error, len(c.fields))
	for i, f := range c.fields {
		member := expected.Field(i)
		dec, err := f.seed(member.Type)
		if err != nil {
			return nil, atPath(err, fieldSeg(member.Name, i))
		}
		decoders[i] = dec
	}
	return DecodeFunc[T](func(r wire.Reader) (T, error) {
		var out T
		if _, err := r.BeginArray(); err != nil {
			return out, decodeError(err)
		}
		for i, dec := range decoders {
			seg := fieldSeg(expected.Field(i).Name, i)
			more, err := r.More()
			if err != nil {
				return out, atPath(err, seg)
			}
			if !more {
				return out, decodeError(wire.Malformed("row has %d values, expected %d", i, len(decoders)))
			}
			if err := dec(r, &out); err != nil {
				return out, atPath(err, seg)
			}
		}
		more, err := r.More()
		if err != nil {
			return out, decodeError(err)
		}
		if more {
			return out, decodeError(wire.Malformed("row has more than %d values", len(decoders)))
		}
		if err := r.EndArray(); err != nil {
			return out, decodeError(err)
		}
		return out, nil
	}), nil
}

// Pair is a two-member tuple value.
type Pair[A, B any] struct {
	First  A
	Second B
}

// PairOf returns the tuple codec for Pair[A, B].
func PairOf[A, B any](a Codec[A], b Codec[B]) Codec[Pair[A, B]] {
	return Tuple(
		Elem(a, func(p *Pair[A, B]) *A { return &p.First }),
		Elem(b, func(p *Pair[A, B]) *B { return &p.Second }),
	)
}

// Triple is a three-member tuple value.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// TripleOf returns the tuple codec for Triple[A, B, C].
func TripleOf[A, B, C any](a Codec[A], b Codec[B], c Codec[C]) Codec[Triple[A, B, C]] {
	return Tuple(
		Elem(a, func(t *Triple[A, B, C]) *A { return &t.First }),
		Elem(b, func(t *Triple[A, B, C]) *B { return &t.Second }),
		Elem(c, func(t *Triple[A, B, C]) *C { return &t.Third }),
	)
}
