package presto

import (
	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

type sliceCodec[T any] struct {
	elem Codec[T]
}

// Slice returns the codec for []T, carried as array(elem).
func Slice[T any](elem Codec[T]) Codec[[]T] {
	return sliceCodec[T]{elem: elem}
}

func (c sliceCodec[T]) Type() types.Type { return types.ArrayOf(c.elem.Type()) }

func (c sliceCodec[T]) View(v *[]T) Encodable {
	return EncodeFunc(func(w wire.Writer) error {
		s := *v
		return Lazy(Views(c.elem, s), len(s)).Encode(w)
	})
}

func (c sliceCodec[T]) Seed(expected types.Type) (Decoder[[]T], error) {
	if err := expectKind[[]T](expected, types.KindArray); err != nil {
		return nil, err
	}
	elemType := expected.Elem()
	first, err := c.elem.Seed(elemType)
	if err != nil {
		return nil, atPath(err, "[]")
	}
	return DecodeFunc[[]T](func(r wire.Reader) ([]T, error) {
		n, err := r.BeginArray()
		if err != nil {
			return nil, decodeError(err)
		}
		out := make([]T, 0, max(n, 0))
		for i := 0; ; i++ {
			more, err := r.More()
			if err != nil {
				return nil, atPath(err, indexSeg(i))
			}
			if !more {
				break
			}
			dec := first
			if i > 0 {
				if dec, err = c.elem.Seed(elemType); err != nil {
					return nil, atPath(err, indexSeg(i))
				}
			}
			v, err := dec.Decode(r)
			if err != nil {
				return nil, atPath(err, indexSeg(i))
			}
			out = append(out, v)
		}
		if err := r.EndArray(); err != nil {
			return nil, decodeError(err)
		}
		return out, nil
	}), nil
}
