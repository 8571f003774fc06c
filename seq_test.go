package presto

import (
	"bytes"
	"errors"
	"iter"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

func TestLazyMatchesCollected(t *testing.T) {
	rows := []user{
		{ID: 1, Tags: []string{"a", "b"}},
		{ID: 2, Tags: []string{}},
	}
	c := userCodec()

	for _, format := range []struct {
		name   string
		writer func(*bytes.Buffer) wire.Writer
	}{
		{"json", func(b *bytes.Buffer) wire.Writer { return wire.NewJSONWriter(b) }},
		{"msgpack", func(b *bytes.Buffer) wire.Writer { return wire.NewMsgpackWriter(b) }},
	} {
		t.Run(format.name, func(t *testing.T) {
			var collected, sized, unsized bytes.Buffer
			if err := Encode(format.writer(&collected), Slice(c), &rows); err != nil {
				t.Fatalf("slice encode failed: %v", err)
			}
			if err := Lazy(Views(c, rows), len(rows)).Encode(format.writer(&sized)); err != nil {
				t.Fatalf("sized lazy encode failed: %v", err)
			}
			if err := Lazy(Views(c, rows), -1).Encode(format.writer(&unsized)); err != nil {
				t.Fatalf("unsized lazy encode failed: %v", err)
			}
			if !bytes.Equal(collected.Bytes(), sized.Bytes()) {
				t.Errorf("sized lazy output differs from collected slice")
			}
			// MessagePack buffers unknown-size frames, so it matches too.
			if !bytes.Equal(collected.Bytes(), unsized.Bytes()) {
				t.Errorf("unsized lazy output differs from collected slice")
			}
		})
	}
}

func TestLazyUnknownSizeDecodes(t *testing.T) {
	// A generator that is never collected into a slice.
	squares := func(yield func(Encodable) bool) {
		for i := int32(1); i <= 4; i++ {
			v := i * i
			if !yield(Int32().View(&v)) {
				return
			}
		}
	}
	var buf bytes.Buffer
	if err := Lazy(squares, -1).Encode(wire.NewMsgpackWriter(&buf)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(wire.NewMsgpackReader(&buf), Slice(Int32()), types.ArrayOf(types.Integer()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !slices.Equal(got, []int32{1, 4, 9, 16}) {
		t.Errorf("got %v", got)
	}
}

func TestLazyIsRestartable(t *testing.T) {
	vals := []string{"x", "y"}
	enc := Lazy(Views(String(), vals), len(vals))
	for i := 0; i < 2; i++ {
		var buf bytes.Buffer
		if err := enc.Encode(wire.NewJSONWriter(&buf)); err != nil {
			t.Fatalf("pass %d: Encode failed: %v", i, err)
		}
		if buf.String() != `["x","y"]` {
			t.Errorf("pass %d: got %s", i, buf.String())
		}
	}
}

func TestLazyWrongSizeHint(t *testing.T) {
	vals := []int32{1, 2, 3}
	var buf bytes.Buffer
	err := Lazy(Views(Int32(), vals), 2).Encode(wire.NewJSONWriter(&buf))
	if !errors.Is(err, wire.ErrFraming) {
		t.Errorf("expected ErrFraming, got %v", err)
	}
}

func TestLazyStopsOnError(t *testing.T) {
	calls := 0
	elems := func(yield func(Encodable) bool) {
		for i := 0; i < 5; i++ {
			calls++
			v := 1 << 40
			if !yield(Int().View(&v)) {
				return
			}
		}
	}
	var buf bytes.Buffer
	err := Lazy(elems, -1).Encode(wire.NewJSONWriter(&buf))
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if calls != 1 {
		t.Errorf("iterator advanced %d times after the failing element", calls)
	}
}

func TestLazyMap(t *testing.T) {
	m := map[string]int32{"a": 1, "b": 2}
	entries := func(yield func(Encodable, Encodable) bool) {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			v := m[k]
			if !yield(String().View(&k), Int32().View(&v)) {
				return
			}
		}
	}
	var buf bytes.Buffer
	if err := LazyMap(iter.Seq2[Encodable, Encodable](entries), -1).Encode(wire.NewJSONWriter(&buf)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := buf.String(); got != `{"a":1,"b":2}` {
		t.Errorf("got %s", got)
	}

	got, err := Decode(wire.NewJSONReader(strings.NewReader(buf.String())), Map(String(), Int32()),
		types.MapOf(types.Varchar(), types.Integer()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !maps.Equal(got, m) {
		t.Errorf("got %v", got)
	}
}
