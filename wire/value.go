package wire

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"slices"
)

// Generic value framing, for data that was already parsed into Go values
// (database/sql scan results, generic JSON decoding):
//   - arrays are any slice or array except []byte
//   - maps are any Go map; entries are visited in sorted key order
//   - integers are any Go integer kind, integral floats, or values with an
//     Int64() (int64, error) method such as json.Number
//   - strings are Go strings; nil is null

type valueFrame struct {
	isMap bool
	val   reflect.Value
	keys  []reflect.Value
	pos   int
	n     int
}

// ValueReader reads a token stream from an in-memory Go value.
type ValueReader struct {
	root     any
	rootDone bool
	frames   []valueFrame
}

// NewValueReader returns a Reader over v.
func NewValueReader(v any) *ValueReader {
	return &ValueReader{root: v}
}

// current returns the next value without consuming it.
func (vr *ValueReader) current() (reflect.Value, bool) {
	if len(vr.frames) == 0 {
		if vr.rootDone {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(vr.root), true
	}
	f := &vr.frames[len(vr.frames)-1]
	limit := f.n
	if f.isMap {
		limit = 2 * f.n
	}
	if f.pos >= limit {
		return reflect.Value{}, false
	}
	if !f.isMap {
		return f.val.Index(f.pos), true
	}
	key := f.keys[f.pos/2]
	if f.pos%2 == 0 {
		return key, true
	}
	return f.val.MapIndex(key), true
}

func (vr *ValueReader) advance() {
	if len(vr.frames) == 0 {
		vr.rootDone = true
		return
	}
	vr.frames[len(vr.frames)-1].pos++
}

func (vr *ValueReader) next() (reflect.Value, error) {
	v, ok := vr.current()
	if !ok {
		return reflect.Value{}, Malformed("read past end of value")
	}
	vr.advance()
	return unwrapInterface(v), nil
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

type int64er interface {
	Int64() (int64, error)
}

var int64erType = reflect.TypeFor[int64er]()

func classify(v reflect.Value) Token {
	if !v.IsValid() {
		return TokenNull
	}
	if v.Type().Implements(int64erType) {
		return TokenInt
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TokenInt
	case reflect.String:
		return TokenString
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return TokenInvalid
		}
		return TokenArray
	case reflect.Array:
		return TokenArray
	case reflect.Map:
		return TokenMap
	}
	return TokenInvalid
}

func (vr *ValueReader) Peek() (Token, error) {
	v, ok := vr.current()
	if !ok {
		return TokenEnd, nil
	}
	return classify(unwrapInterface(v)), nil
}

func (vr *ValueReader) BeginArray() (int, error) {
	v, err := vr.next()
	if err != nil {
		return 0, err
	}
	if classify(v) != TokenArray {
		return 0, Malformed("expected array, got %s", describeValue(v))
	}
	vr.frames = append(vr.frames, valueFrame{val: v, n: v.Len()})
	return v.Len(), nil
}

func (vr *ValueReader) BeginMap() (int, error) {
	v, err := vr.next()
	if err != nil {
		return 0, err
	}
	if classify(v) != TokenMap {
		return 0, Malformed("expected map, got %s", describeValue(v))
	}
	keys := v.MapKeys()
	slices.SortFunc(keys, compareKeys)
	vr.frames = append(vr.frames, valueFrame{isMap: true, val: v, keys: keys, n: len(keys)})
	return len(keys), nil
}

func (vr *ValueReader) end(isMap bool) error {
	if len(vr.frames) == 0 || vr.frames[len(vr.frames)-1].isMap != isMap {
		return fmt.Errorf("%w: unbalanced end of %s", ErrFraming, containerName(isMap))
	}
	if _, more := vr.current(); more {
		return Malformed("%s closed with unread values", containerName(isMap))
	}
	vr.frames = vr.frames[:len(vr.frames)-1]
	return nil
}

func (vr *ValueReader) EndArray() error { return vr.end(false) }
func (vr *ValueReader) EndMap() error   { return vr.end(true) }

func (vr *ValueReader) More() (bool, error) {
	if len(vr.frames) == 0 {
		return false, fmt.Errorf("%w: More outside of a container", ErrFraming)
	}
	_, ok := vr.current()
	return ok, nil
}

func (vr *ValueReader) ReadInt() (int64, error) {
	v, err := vr.next()
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

func (vr *ValueReader) ReadString() (string, error) {
	v, err := vr.next()
	if err != nil {
		return "", err
	}
	if !v.IsValid() || v.Kind() != reflect.String {
		return "", Malformed("expected string, got %s", describeValue(v))
	}
	return v.String(), nil
}

// ReadNull consumes a nil value.
func (vr *ValueReader) ReadNull() error {
	v, err := vr.next()
	if err != nil {
		return err
	}
	if v.IsValid() {
		return Malformed("expected null, got %s", describeValue(v))
	}
	return nil
}

func toInt64(v reflect.Value) (int64, error) {
	if !v.IsValid() {
		return 0, Malformed("expected integer, got null")
	}
	if v.Type().Implements(int64erType) {
		n, err := v.Interface().(int64er).Int64()
		if err != nil {
			return 0, Malformed("invalid integer: %v", err)
		}
		return n, nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, Malformed("integer %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, Malformed("number %v is not an integer", f)
		}
		return int64(f), nil
	}
	return 0, Malformed("expected integer, got %s", describeValue(v))
}

func compareKeys(a, b reflect.Value) int {
	a, b = unwrapInterface(a), unwrapInterface(b)
	ta, tb := classify(a), classify(b)
	if ta != tb {
		return cmp.Compare(ta, tb)
	}
	switch ta {
	case TokenInt:
		x, _ := toInt64(a)
		y, _ := toInt64(b)
		return cmp.Compare(x, y)
	case TokenString:
		return cmp.Compare(a.String(), b.String())
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func describeValue(v reflect.Value) string {
	if !v.IsValid() {
		return "null"
	}
	return v.Type().String()
}

type valueBuild struct {
	isMap bool
	size  int
	items []any
}

// ValueWriter builds an in-memory Go value from a token stream.
// Arrays become []any, maps become map[string]any when every key is a string
// and map[any]any otherwise, integers become int64.
type ValueWriter struct {
	frames []valueBuild
	result any
	done   bool
}

// NewValueWriter returns an empty ValueWriter.
func NewValueWriter() *ValueWriter {
	return &ValueWriter{}
}

// Value returns the completed top-level value.
func (vw *ValueWriter) Value() (any, error) {
	if !vw.done || len(vw.frames) > 0 {
		return nil, fmt.Errorf("%w: value is incomplete", ErrFraming)
	}
	return vw.result, nil
}

func (vw *ValueWriter) put(v any) error {
	if len(vw.frames) == 0 {
		if vw.done {
			return fmt.Errorf("%w: more than one top-level value", ErrFraming)
		}
		vw.result, vw.done = v, true
		return nil
	}
	f := &vw.frames[len(vw.frames)-1]
	f.items = append(f.items, v)
	return nil
}

func (vw *ValueWriter) BeginArray(size int) error {
	vw.frames = append(vw.frames, valueBuild{size: size, items: make([]any, 0, max(size, 0))})
	return nil
}

func (vw *ValueWriter) BeginMap(size int) error {
	vw.frames = append(vw.frames, valueBuild{isMap: true, size: size, items: make([]any, 0, 2*max(size, 0))})
	return nil
}

func (vw *ValueWriter) end(isMap bool) (valueBuild, error) {
	if len(vw.frames) == 0 || vw.frames[len(vw.frames)-1].isMap != isMap {
		return valueBuild{}, fmt.Errorf("%w: unbalanced end of %s", ErrFraming, containerName(isMap))
	}
	f := vw.frames[len(vw.frames)-1]
	vw.frames = vw.frames[:len(vw.frames)-1]
	return f, checkCount(isMap, f.size, len(f.items))
}

func (vw *ValueWriter) EndArray() error {
	f, err := vw.end(false)
	if err != nil {
		return err
	}
	return vw.put(f.items)
}

func (vw *ValueWriter) EndMap() error {
	f, err := vw.end(true)
	if err != nil {
		return err
	}
	allStrings := true
	for i := 0; i < len(f.items); i += 2 {
		if _, ok := f.items[i].(string); !ok {
			allStrings = false
			break
		}
	}
	if allStrings {
		m := make(map[string]any, len(f.items)/2)
		for i := 0; i < len(f.items); i += 2 {
			m[f.items[i].(string)] = f.items[i+1]
		}
		return vw.put(m)
	}
	m := make(map[any]any, len(f.items)/2)
	for i := 0; i < len(f.items); i += 2 {
		k := f.items[i]
		if k != nil && !reflect.TypeOf(k).Comparable() {
			return fmt.Errorf("%w: composite map key", ErrUnsupported)
		}
		m[k] = f.items[i+1]
	}
	return vw.put(m)
}

func (vw *ValueWriter) WriteInt(v int64) error     { return vw.put(v) }
func (vw *ValueWriter) WriteString(s string) error { return vw.put(s) }
