package presto

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

type mapCodec[K comparable, V any] struct {
	key     Codec[K]
	value   Codec[V]
	entries func(m map[K]V) iter.Seq[K]
}

// Map returns the codec for map[K]V, carried as map(key, value).
// Entries are written in Go map iteration order. When a decoded map repeats
// a key, the last entry wins.
func Map[K comparable, V any](key Codec[K], value Codec[V]) Codec[map[K]V] {
	return mapCodec[K, V]{key: key, value: value, entries: func(m map[K]V) iter.Seq[K] {
		return maps.Keys(m)
	}}
}

// OrderedMap is Map with entries written in ascending key order, for
// reproducible output.
func OrderedMap[K cmp.Ordered, V any](key Codec[K], value Codec[V]) Codec[map[K]V] {
	return mapCodec[K, V]{key: key, value: value, entries: func(m map[K]V) iter.Seq[K] {
		return slices.Values(slices.Sorted(maps.Keys(m)))
	}}
}

func (c mapCodec[K, V]) Type() types.Type {
	return types.MapOf(c.key.Type(), c.value.Type())
}

func (c mapCodec[K, V]) View(v *map[K]V) Encodable {
	return EncodeFunc(func(w wire.Writer) error {
		m := *v
		entries := func(yield func(Encodable, Encodable) bool) {
			for k := range c.entries(m) {
				val := m[k]
				if !yield(c.key.View(&k), c.value.View(&val)) {
					return
				}
			}
		}
		return LazyMap(entries, len(m)).Encode(w)
	})
}

func (c mapCodec[K, V]) Seed(expected types.Type) (Decoder[map[K]V], error) {
	if err := expectKind[map[K]V](expected, types.KindMap); err != nil {
		return nil, err
	}
	keyType, valueType := expected.Key(), expected.Value()
	firstKey, err := c.key.Seed(keyType)
	if err != nil {
		return nil, atPath(err, "{key}")
	}
	firstValue, err := c.value.Seed(valueType)
	if err != nil {
		return nil, atPath(err, "{value}")
	}
	return DecodeFunc[map[K]V](func(r wire.Reader) (map[K]V, error) {
		n, err := r.BeginMap()
		if err != nil {
			return nil, decodeError(err)
		}
		out := make(map[K]V, max(n, 0))
		for i := 0; ; i++ {
			more, err := r.More()
			if err != nil {
				return nil, decodeError(err)
			}
			if !more {
				break
			}
			kdec, vdec := firstKey, firstValue
			if i > 0 {
				if kdec, err = c.key.Seed(keyType); err != nil {
					return nil, atPath(err, "{key}")
				}
				if vdec, err = c.value.Seed(valueType); err != nil {
					return nil, atPath(err, "{value}")
				}
			}
			k, err := kdec.Decode(r)
			if err != nil {
				return nil, atPath(err, fmt.Sprintf("{key %d}", i))
			}
			v, err := vdec.Decode(r)
			if err != nil {
				return nil, atPath(err, fmt.Sprintf("[%v]", k))
			}
			out[k] = v
		}
		if err := r.EndMap(); err != nil {
			return nil, decodeError(err)
		}
		return out, nil
	}), nil
}
