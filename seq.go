package presto

import (
	"iter"

	"github.com/hugr-lab/presto-go/wire"
)

type lazySeq struct {
	elems iter.Seq[Encodable]
	size  int
}

// Lazy returns an Encodable writing the elements of elems as an array, in
// iteration order, without collecting them. size is the element count, or
// negative when unknown; a known size produces the same bytes as encoding a
// slice of the same elements.
//
// elems is ranged once per Encode call, so the Encodable can be written
// more than once when elems can.
func Lazy(elems iter.Seq[Encodable], size int) Encodable {
	return lazySeq{elems: elems, size: size}
}

func (l lazySeq) Encode(w wire.Writer) error {
	if err := w.BeginArray(l.size); err != nil {
		return err
	}
	for e := range l.elems {
		if err := e.Encode(w); err != nil {
			return err
		}
	}
	return w.EndArray()
}

type lazyMap struct {
	entries iter.Seq2[Encodable, Encodable]
	size    int
}

// LazyMap is the map counterpart of Lazy: each key/value pair of entries is
// written as one map entry.
func LazyMap(entries iter.Seq2[Encodable, Encodable], size int) Encodable {
	return lazyMap{entries: entries, size: size}
}

func (l lazyMap) Encode(w wire.Writer) error {
	if err := w.BeginMap(l.size); err != nil {
		return err
	}
	for k, v := range l.entries {
		if err := k.Encode(w); err != nil {
			return err
		}
		if err := v.Encode(w); err != nil {
			return err
		}
	}
	return w.EndMap()
}

// Views returns the views of the elements of s under codec c.
func Views[T any](c Codec[T], s []T) iter.Seq[Encodable] {
	return func(yield func(Encodable) bool) {
		for i := range s {
			if !yield(c.View(&s[i])) {
				return
			}
		}
	}
}
