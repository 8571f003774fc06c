package columnar

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/presto-go/wire"
)

type frameKind uint8

const (
	frameList frameKind = iota
	frameMap
	frameStruct
	frameRows   // rows of a record, each an array of column values
	frameRecord // one row of a record
)

type writeFrame struct {
	kind     frameKind
	builders []array.Builder // list: values; map: keys, items; struct/record: fields
	tokens   int
}

// Writer is a wire.Writer appending values to Arrow builders.
//
// Every top-level value is appended to the root builder. Arrays go to list
// and struct builders, maps to map builders; the builder types must match
// the tokens, as they do for builders created from ArrowType of the codec's
// descriptor.
type Writer struct {
	root    array.Builder
	fields  []array.Builder
	frames  []writeFrame
	records bool
}

// NewWriter returns a Writer appending to b.
func NewWriter(b array.Builder) *Writer {
	return &Writer{root: b}
}

// NewRecordWriter returns a Writer over the fields of rb. It accepts one
// top-level array of rows, each row an array with one value per field.
func NewRecordWriter(rb *array.RecordBuilder) *Writer {
	return &Writer{fields: rb.Fields(), records: true}
}

// next returns the builder receiving the next token and accounts for it.
func (w *Writer) next() (array.Builder, error) {
	if len(w.frames) == 0 {
		if w.records {
			return nil, nil
		}
		return w.root, nil
	}
	f := &w.frames[len(w.frames)-1]
	defer func() { f.tokens++ }()
	switch f.kind {
	case frameList:
		return f.builders[0], nil
	case frameMap:
		return f.builders[f.tokens%2], nil
	case frameRows:
		return nil, nil
	}
	if f.tokens >= len(f.builders) {
		return nil, fmt.Errorf("%w: more than %d struct fields", ErrTypeMismatch, len(f.builders))
	}
	return f.builders[f.tokens], nil
}

func (w *Writer) BeginArray(size int) error {
	if len(w.frames) == 0 && w.records {
		w.frames = append(w.frames, writeFrame{kind: frameRows})
		return nil
	}
	top := len(w.frames) > 0 && w.frames[len(w.frames)-1].kind == frameRows
	b, err := w.next()
	if err != nil {
		return err
	}
	if top {
		w.frames = append(w.frames, writeFrame{kind: frameRecord, builders: w.fields})
		return nil
	}
	switch b := b.(type) {
	case *array.ListBuilder:
		b.Append(true)
		w.frames = append(w.frames, writeFrame{kind: frameList, builders: []array.Builder{b.ValueBuilder()}})
	case *array.StructBuilder:
		b.Append(true)
		fields := make([]array.Builder, b.NumField())
		for i := range fields {
			fields[i] = b.FieldBuilder(i)
		}
		w.frames = append(w.frames, writeFrame{kind: frameStruct, builders: fields})
	default:
		return mismatch("array", b)
	}
	return nil
}

func (w *Writer) EndArray() error {
	if len(w.frames) == 0 {
		return fmt.Errorf("%w: unbalanced end of array", wire.ErrFraming)
	}
	f := w.frames[len(w.frames)-1]
	if f.kind == frameMap {
		return fmt.Errorf("%w: end of array closes a map", wire.ErrFraming)
	}
	if (f.kind == frameStruct || f.kind == frameRecord) && f.tokens != len(f.builders) {
		return fmt.Errorf("%w: wrote %d of %d struct fields", ErrTypeMismatch, f.tokens, len(f.builders))
	}
	w.frames = w.frames[:len(w.frames)-1]
	return nil
}

func (w *Writer) BeginMap(size int) error {
	b, err := w.next()
	if err != nil {
		return err
	}
	mb, ok := b.(*array.MapBuilder)
	if !ok {
		return mismatch("map", b)
	}
	mb.Append(true)
	w.frames = append(w.frames, writeFrame{kind: frameMap, builders: []array.Builder{mb.KeyBuilder(), mb.ItemBuilder()}})
	return nil
}

func (w *Writer) EndMap() error {
	if len(w.frames) == 0 || w.frames[len(w.frames)-1].kind != frameMap {
		return fmt.Errorf("%w: unbalanced end of map", wire.ErrFraming)
	}
	if w.frames[len(w.frames)-1].tokens%2 != 0 {
		return fmt.Errorf("%w: map closed after a key without value", wire.ErrFraming)
	}
	w.frames = w.frames[:len(w.frames)-1]
	return nil
}

func (w *Writer) WriteInt(v int64) error {
	b, err := w.next()
	if err != nil {
		return err
	}
	switch b := b.(type) {
	case *array.Int32Builder:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: %d overflows int32", ErrTypeMismatch, v)
		}
		b.Append(int32(v))
	case *array.Int64Builder:
		b.Append(v)
	default:
		return mismatch("integer", b)
	}
	return nil
}

func (w *Writer) WriteString(s string) error {
	b, err := w.next()
	if err != nil {
		return err
	}
	switch b := b.(type) {
	case *array.StringBuilder:
		b.Append(s)
	case *array.LargeStringBuilder:
		b.Append(s)
	default:
		return mismatch("string", b)
	}
	return nil
}

func mismatch(token string, b array.Builder) error {
	if b == nil {
		return fmt.Errorf("%w: %s outside of a row", ErrTypeMismatch, token)
	}
	return fmt.Errorf("%w: cannot append %s to %s builder", ErrTypeMismatch, token, b.Type())
}
