package columnar

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/presto-go/wire"
)

type readFrame struct {
	kind   frameKind
	arrays []arrow.Array // list: values; map: keys, items; struct/record: fields
	start  int           // list/map: first child index
	row    int           // struct/record: row index
	pos    int
	n      int
}

// at returns the array and index of the next value of the frame.
func (f *readFrame) at() (arrow.Array, int) {
	switch f.kind {
	case frameList:
		return f.arrays[0], f.start + f.pos
	case frameMap:
		return f.arrays[f.pos%2], f.start + f.pos/2
	case frameRows:
		return nil, f.pos
	}
	return f.arrays[f.pos], f.row
}

// Reader is a wire.Reader over the values of an Arrow array.
//
// Unlike the byte formats, the top level of a Reader is a sequence: every
// top-level read consumes the next element of the array, and More reports
// whether elements remain.
type Reader struct {
	frames []readFrame
}

// NewReader returns a Reader over the elements of arr.
func NewReader(arr arrow.Array) *Reader {
	return &Reader{frames: []readFrame{{
		kind:   frameList,
		arrays: []arrow.Array{arr},
		n:      arr.Len(),
	}}}
}

// NewRecordReader returns a Reader presenting rec as one array of rows,
// each row an array with one value per column.
func NewRecordReader(rec arrow.RecordBatch) *Reader {
	return &Reader{frames: []readFrame{{
		kind:   frameRows,
		arrays: rec.Columns(),
		n:      int(rec.NumRows()),
		pos:    -1,
	}}}
}

func (r *Reader) top() *readFrame {
	return &r.frames[len(r.frames)-1]
}

// rowsPending reports whether the reader is a record reader whose rows
// array has not been opened yet.
func (r *Reader) rowsPending() bool {
	return len(r.frames) == 1 && r.frames[0].kind == frameRows && r.frames[0].pos < 0
}

// current returns the next value without consuming it.
func (r *Reader) current() (arrow.Array, int, bool) {
	if r.rowsPending() {
		return nil, 0, true
	}
	f := r.top()
	if f.pos >= f.n {
		return nil, 0, false
	}
	arr, i := f.at()
	return arr, i, true
}

func (r *Reader) next() (arrow.Array, int, error) {
	arr, i, ok := r.current()
	if !ok {
		return nil, 0, wire.Malformed("read past end of array")
	}
	r.top().pos++
	if arr != nil && arr.IsNull(i) {
		return nil, 0, wire.Malformed("unexpected null value")
	}
	return arr, i, nil
}

func (r *Reader) Peek() (wire.Token, error) {
	arr, i, ok := r.current()
	if !ok {
		return wire.TokenEnd, nil
	}
	if arr == nil {
		return wire.TokenArray, nil
	}
	if arr.IsNull(i) {
		return wire.TokenNull, nil
	}
	switch arr.(type) {
	case *array.Int8, *array.Int16, *array.Int32, *array.Int64,
		*array.Uint8, *array.Uint16, *array.Uint32, *array.Uint64:
		return wire.TokenInt, nil
	case *array.String, *array.LargeString:
		return wire.TokenString, nil
	case *array.Map:
		return wire.TokenMap, nil
	case *array.List, *array.LargeList, *array.Struct:
		return wire.TokenArray, nil
	}
	return wire.TokenInvalid, nil
}

func (r *Reader) BeginArray() (int, error) {
	if r.rowsPending() {
		f := r.top()
		f.pos = 0
		return f.n, nil
	}
	rows := r.top().kind == frameRows
	arr, i, err := r.next()
	if err != nil {
		return 0, err
	}
	if rows {
		cols := r.frames[0].arrays
		r.frames = append(r.frames, readFrame{kind: frameRecord, arrays: cols, row: i, n: len(cols)})
		return len(cols), nil
	}
	switch a := arr.(type) {
	case *array.Map:
		return 0, wire.Malformed("expected array, got map")
	case *array.List:
		start, end := a.ValueOffsets(i)
		r.frames = append(r.frames, readFrame{kind: frameList, arrays: []arrow.Array{a.ListValues()}, start: int(start), n: int(end - start)})
		return int(end - start), nil
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		r.frames = append(r.frames, readFrame{kind: frameList, arrays: []arrow.Array{a.ListValues()}, start: int(start), n: int(end - start)})
		return int(end - start), nil
	case *array.Struct:
		fields := make([]arrow.Array, a.NumField())
		for j := range fields {
			fields[j] = a.Field(j)
		}
		r.frames = append(r.frames, readFrame{kind: frameStruct, arrays: fields, row: i, n: len(fields)})
		return len(fields), nil
	}
	return 0, wire.Malformed("expected array, got %s", arr.DataType())
}

func (r *Reader) BeginMap() (int, error) {
	arr, i, err := r.next()
	if err != nil {
		return 0, err
	}
	m, ok := arr.(*array.Map)
	if !ok {
		if arr == nil {
			return 0, wire.Malformed("expected map, got row")
		}
		return 0, wire.Malformed("expected map, got %s", arr.DataType())
	}
	start, end := m.ValueOffsets(i)
	n := int(end - start)
	r.frames = append(r.frames, readFrame{
		kind:   frameMap,
		arrays: []arrow.Array{m.Keys(), m.Items()},
		start:  int(start),
		n:      2 * n,
	})
	return n, nil
}

func (r *Reader) end(isMap bool) error {
	name := "array"
	if isMap {
		name = "map"
	}
	if len(r.frames) < 2 && !(len(r.frames) == 1 && r.frames[0].kind == frameRows && !isMap) {
		return fmt.Errorf("%w: unbalanced end of %s", wire.ErrFraming, name)
	}
	f := r.top()
	if (f.kind == frameMap) != isMap {
		return fmt.Errorf("%w: unbalanced end of %s", wire.ErrFraming, name)
	}
	if f.pos < f.n {
		return wire.Malformed("%s closed with %d unread values", name, f.n-f.pos)
	}
	if len(r.frames) > 1 {
		r.frames = r.frames[:len(r.frames)-1]
	}
	return nil
}

func (r *Reader) EndArray() error { return r.end(false) }
func (r *Reader) EndMap() error   { return r.end(true) }

func (r *Reader) More() (bool, error) {
	_, _, ok := r.current()
	return ok, nil
}

func (r *Reader) ReadInt() (int64, error) {
	arr, i, err := r.next()
	if err != nil {
		return 0, err
	}
	switch a := arr.(type) {
	case *array.Int8:
		return int64(a.Value(i)), nil
	case *array.Int16:
		return int64(a.Value(i)), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return int64(a.Value(i)), nil
	case *array.Uint16:
		return int64(a.Value(i)), nil
	case *array.Uint32:
		return int64(a.Value(i)), nil
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return 0, wire.Malformed("integer %d overflows int64", v)
		}
		return int64(v), nil
	}
	return 0, wire.Malformed("expected integer, got %s", describe(arr))
}

func (r *Reader) ReadString() (string, error) {
	arr, i, err := r.next()
	if err != nil {
		return "", err
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	}
	return "", wire.Malformed("expected string, got %s", describe(arr))
}

// ReadNull consumes a null element.
func (r *Reader) ReadNull() error {
	arr, i, ok := r.current()
	if !ok {
		return wire.Malformed("read past end of array")
	}
	if arr == nil || !arr.IsNull(i) {
		return wire.Malformed("expected null, got %s", describe(arr))
	}
	r.top().pos++
	return nil
}

func describe(arr arrow.Array) string {
	if arr == nil {
		return "row"
	}
	return arr.DataType().String()
}
