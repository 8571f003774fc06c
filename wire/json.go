package wire

import (
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

// JSON framing:
//   - arrays are JSON arrays; size hints are not written
//   - maps are JSON objects; string keys are written as is and integer keys
//     as their decimal string ("1"), parsed back to integers when a decoder
//     reads an integer in key position
//   - integers are JSON numbers, strings are JSON strings
//
// Composite map keys cannot be represented and fail with ErrUnsupported.

type jsonFrame struct {
	isMap  bool
	size   int
	tokens int
}

// JSONWriter writes a token stream as compact JSON.
type JSONWriter struct {
	w      io.Writer
	frames []jsonFrame
	buf    []byte
}

// NewJSONWriter returns a Writer producing JSON on w.
// Wrap w in a bufio.Writer for unbuffered destinations.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w, buf: make([]byte, 0, 64)}
}

// prefix writes the separator owed before the next token and reports whether
// the token is a map key.
func (jw *JSONWriter) prefix() (isKey bool) {
	if len(jw.frames) == 0 {
		return false
	}
	f := &jw.frames[len(jw.frames)-1]
	if f.isMap {
		isKey = f.tokens%2 == 0
		if !isKey {
			jw.buf = append(jw.buf, ':')
		} else if f.tokens > 0 {
			jw.buf = append(jw.buf, ',')
		}
	} else if f.tokens > 0 {
		jw.buf = append(jw.buf, ',')
	}
	f.tokens++
	return isKey
}

func (jw *JSONWriter) flush() error {
	_, err := jw.w.Write(jw.buf)
	jw.buf = jw.buf[:0]
	return err
}

func (jw *JSONWriter) begin(isMap bool, size int) error {
	if jw.prefix() {
		return fmt.Errorf("%w: composite JSON object key", ErrUnsupported)
	}
	if isMap {
		jw.buf = append(jw.buf, '{')
	} else {
		jw.buf = append(jw.buf, '[')
	}
	jw.frames = append(jw.frames, jsonFrame{isMap: isMap, size: size})
	return jw.flush()
}

func (jw *JSONWriter) end(isMap bool) error {
	if len(jw.frames) == 0 || jw.frames[len(jw.frames)-1].isMap != isMap {
		return fmt.Errorf("%w: unbalanced end of %s", ErrFraming, containerName(isMap))
	}
	f := jw.frames[len(jw.frames)-1]
	jw.frames = jw.frames[:len(jw.frames)-1]
	if err := checkCount(f.isMap, f.size, f.tokens); err != nil {
		return err
	}
	if isMap {
		jw.buf = append(jw.buf, '}')
	} else {
		jw.buf = append(jw.buf, ']')
	}
	return jw.flush()
}

func (jw *JSONWriter) BeginArray(size int) error { return jw.begin(false, size) }
func (jw *JSONWriter) EndArray() error          { return jw.end(false) }
func (jw *JSONWriter) BeginMap(size int) error   { return jw.begin(true, size) }
func (jw *JSONWriter) EndMap() error            { return jw.end(true) }

func (jw *JSONWriter) WriteInt(v int64) error {
	if jw.prefix() {
		jw.buf = append(jw.buf, '"')
		jw.buf = strconv.AppendInt(jw.buf, v, 10)
		jw.buf = append(jw.buf, '"')
	} else {
		jw.buf = strconv.AppendInt(jw.buf, v, 10)
	}
	return jw.flush()
}

func (jw *JSONWriter) WriteString(s string) error {
	jw.prefix()
	quoted, err := json.Marshal(s)
	if err != nil {
		return err
	}
	jw.buf = append(jw.buf, quoted...)
	return jw.flush()
}

// checkCount verifies a closed frame against its size hint.
func checkCount(isMap bool, size, tokens int) error {
	if isMap && tokens%2 != 0 {
		return fmt.Errorf("%w: map closed after a key without value", ErrFraming)
	}
	n := tokens
	if isMap {
		n = tokens / 2
	}
	if size >= 0 && n != size {
		return fmt.Errorf("%w: %s size hint %d, wrote %d", ErrFraming, containerName(isMap), size, n)
	}
	return nil
}

func containerName(isMap bool) string {
	if isMap {
		return "map"
	}
	return "array"
}

type jsonReadFrame struct {
	isMap   bool
	keyNext bool
	n       int // values read at this level, keys included
}

// jsonInput keeps the input read by the decoder from offset base on, so the
// separators between tokens can be checked.
type jsonInput struct {
	r    io.Reader
	buf  []byte
	base int64
}

func (in *jsonInput) Read(p []byte) (int, error) {
	n, err := in.r.Read(p)
	in.buf = append(in.buf, p[:n]...)
	return n, err
}

// discard drops the input before offset.
func (in *jsonInput) discard(offset int64) {
	in.buf = in.buf[offset-in.base:]
	in.base = offset
}

// JSONReader reads a token stream from JSON input.
//
// Commas and colons are checked against the structure being read, so input
// that is not valid JSON fails with ErrMalformed when the reader reaches the
// offending separator.
type JSONReader struct {
	dec    *json.Decoder
	in     *jsonInput
	tok    json.Token
	peeked bool
	frames []jsonReadFrame
}

// NewJSONReader returns a Reader consuming JSON from r.
func NewJSONReader(r io.Reader) *JSONReader {
	in := &jsonInput{r: r}
	dec := json.NewDecoder(in)
	dec.UseNumber()
	return &JSONReader{dec: dec, in: in}
}

func (jr *JSONReader) peekToken() (json.Token, error) {
	if !jr.peeked {
		tok, err := jr.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, Malformed("unexpected end of JSON input")
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := jr.checkSeparator(tok); err != nil {
			return nil, err
		}
		jr.tok = tok
		jr.peeked = true
	}
	return jr.tok, nil
}

// checkSeparator verifies the commas and colons read before tok.
func (jr *JSONReader) checkSeparator(tok json.Token) error {
	var seps []byte
scan:
	for _, c := range jr.in.buf {
		switch c {
		case ' ', '\t', '\n', '\r':
		case ',', ':':
			seps = append(seps, c)
		default:
			break scan
		}
	}
	jr.in.discard(jr.dec.InputOffset())

	want := jr.separator(tok)
	switch {
	case want == 0 && len(seps) > 0:
		return Malformed("unexpected %q before %s", seps[0], describeJSON(tok))
	case want != 0 && len(seps) == 0:
		return Malformed("missing %q before %s", want, describeJSON(tok))
	case want != 0 && (len(seps) > 1 || seps[0] != want):
		return Malformed("expected %q before %s, got %q", want, describeJSON(tok), seps)
	}
	return nil
}

// separator returns the separator expected before tok, or 0 for none.
func (jr *JSONReader) separator(tok json.Token) byte {
	if len(jr.frames) == 0 {
		return 0
	}
	if d, ok := tok.(json.Delim); ok && (d == ']' || d == '}') {
		return 0
	}
	f := jr.frames[len(jr.frames)-1]
	switch {
	case f.isMap && !f.keyNext:
		return ':'
	case f.n == 0:
		return 0
	}
	return ','
}

func (jr *JSONReader) nextToken() (json.Token, error) {
	tok, err := jr.peekToken()
	if err != nil {
		return nil, err
	}
	jr.peeked = false
	jr.tok = nil
	return tok, nil
}

// inKey reports whether the next value is an object key.
func (jr *JSONReader) inKey() bool {
	if len(jr.frames) == 0 {
		return false
	}
	f := jr.frames[len(jr.frames)-1]
	return f.isMap && f.keyNext
}

// consumed records that a whole value was read at the current level.
func (jr *JSONReader) consumed() {
	if len(jr.frames) == 0 {
		return
	}
	f := &jr.frames[len(jr.frames)-1]
	f.n++
	if f.isMap {
		f.keyNext = !f.keyNext
	}
}

func (jr *JSONReader) Peek() (Token, error) {
	tok, err := jr.peekToken()
	if err != nil {
		return TokenInvalid, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '[':
			return TokenArray, nil
		case '{':
			return TokenMap, nil
		default:
			return TokenEnd, nil
		}
	case json.Number:
		return TokenInt, nil
	case string:
		return TokenString, nil
	case nil:
		return TokenNull, nil
	}
	return TokenInvalid, nil
}

func (jr *JSONReader) begin(isMap bool) (int, error) {
	if jr.inKey() {
		return 0, Malformed("object key must be a string, got %s", containerName(isMap))
	}
	tok, err := jr.nextToken()
	if err != nil {
		return 0, err
	}
	want := json.Delim('[')
	if isMap {
		want = json.Delim('{')
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return 0, Malformed("expected %s, got %v", containerName(isMap), describeJSON(tok))
	}
	jr.frames = append(jr.frames, jsonReadFrame{isMap: isMap, keyNext: true})
	return -1, nil
}

func (jr *JSONReader) end(isMap bool) error {
	tok, err := jr.nextToken()
	if err != nil {
		return err
	}
	want := json.Delim(']')
	if isMap {
		want = json.Delim('}')
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return Malformed("expected end of %s, got %v", containerName(isMap), describeJSON(tok))
	}
	if len(jr.frames) == 0 || jr.frames[len(jr.frames)-1].isMap != isMap {
		return fmt.Errorf("%w: unbalanced end of %s", ErrFraming, containerName(isMap))
	}
	if isMap && !jr.frames[len(jr.frames)-1].keyNext {
		return Malformed("object key without value")
	}
	jr.frames = jr.frames[:len(jr.frames)-1]
	jr.consumed()
	return nil
}

func (jr *JSONReader) BeginArray() (int, error) { return jr.begin(false) }
func (jr *JSONReader) EndArray() error          { return jr.end(false) }
func (jr *JSONReader) BeginMap() (int, error)   { return jr.begin(true) }
func (jr *JSONReader) EndMap() error            { return jr.end(true) }

func (jr *JSONReader) More() (bool, error) {
	tok, err := jr.Peek()
	if err != nil {
		return false, err
	}
	return tok != TokenEnd, nil
}

func (jr *JSONReader) ReadInt() (int64, error) {
	isKey := jr.inKey()
	tok, err := jr.nextToken()
	if err != nil {
		return 0, err
	}
	var n int64
	switch v := tok.(type) {
	case json.Number:
		if isKey {
			return 0, Malformed("object key must be a string, got number %s", v)
		}
		n, err = strconv.ParseInt(string(v), 10, 64)
	case string:
		if !isKey {
			return 0, Malformed("expected integer, got string %q", v)
		}
		n, err = strconv.ParseInt(v, 10, 64)
	default:
		return 0, Malformed("expected integer, got %v", describeJSON(tok))
	}
	if err != nil {
		return 0, Malformed("invalid integer: %v", err)
	}
	jr.consumed()
	return n, nil
}

func (jr *JSONReader) ReadString() (string, error) {
	tok, err := jr.nextToken()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", Malformed("expected string, got %v", describeJSON(tok))
	}
	jr.consumed()
	return s, nil
}

// ReadNull consumes a JSON null.
func (jr *JSONReader) ReadNull() error {
	if jr.inKey() {
		return Malformed("object key must be a string, got null")
	}
	tok, err := jr.nextToken()
	if err != nil {
		return err
	}
	if tok != nil {
		return Malformed("expected null, got %v", describeJSON(tok))
	}
	jr.consumed()
	return nil
}

func describeJSON(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return fmt.Sprintf("%q", v.String())
	case json.Number:
		return "number " + string(v)
	case string:
		return fmt.Sprintf("string %q", v)
	case bool:
		return fmt.Sprintf("bool %t", v)
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", tok)
}
