package wire

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// MessagePack framing: arrays and maps carry their length in the header, so
// unsized frames are buffered and written with the counted header when they
// are closed. Sized and unsized encodings of the same values are therefore
// byte-identical.

type msgpackFrame struct {
	isMap  bool
	size   int
	tokens int
	buf    *bytes.Buffer
	enc    *msgpack.Encoder
}

// MsgpackWriter writes a token stream as MessagePack.
type MsgpackWriter struct {
	root   *msgpack.Encoder
	frames []msgpackFrame
}

// NewMsgpackWriter returns a Writer producing MessagePack on w.
func NewMsgpackWriter(w io.Writer) *MsgpackWriter {
	return &MsgpackWriter{root: msgpack.NewEncoder(w)}
}

// encoder returns the encoder of the innermost buffered frame, or the root.
func (mw *MsgpackWriter) encoder() *msgpack.Encoder {
	for i := len(mw.frames) - 1; i >= 0; i-- {
		if mw.frames[i].enc != nil {
			return mw.frames[i].enc
		}
	}
	return mw.root
}

func (mw *MsgpackWriter) value() {
	if len(mw.frames) > 0 {
		mw.frames[len(mw.frames)-1].tokens++
	}
}

func (mw *MsgpackWriter) begin(isMap bool, size int) error {
	mw.value()
	f := msgpackFrame{isMap: isMap, size: size}
	if size < 0 {
		f.buf = new(bytes.Buffer)
		f.enc = msgpack.NewEncoder(f.buf)
	} else {
		enc := mw.encoder()
		var err error
		if isMap {
			err = enc.EncodeMapLen(size)
		} else {
			err = enc.EncodeArrayLen(size)
		}
		if err != nil {
			return err
		}
	}
	mw.frames = append(mw.frames, f)
	return nil
}

func (mw *MsgpackWriter) end(isMap bool) error {
	if len(mw.frames) == 0 || mw.frames[len(mw.frames)-1].isMap != isMap {
		return fmt.Errorf("%w: unbalanced end of %s", ErrFraming, containerName(isMap))
	}
	f := mw.frames[len(mw.frames)-1]
	mw.frames = mw.frames[:len(mw.frames)-1]
	if err := checkCount(f.isMap, f.size, f.tokens); err != nil {
		return err
	}
	if f.buf == nil {
		return nil
	}

	parent := mw.encoder()
	var err error
	if isMap {
		err = parent.EncodeMapLen(f.tokens / 2)
	} else {
		err = parent.EncodeArrayLen(f.tokens)
	}
	if err != nil {
		return err
	}
	_, err = parent.Writer().Write(f.buf.Bytes())
	return err
}

func (mw *MsgpackWriter) BeginArray(size int) error { return mw.begin(false, size) }
func (mw *MsgpackWriter) EndArray() error          { return mw.end(false) }
func (mw *MsgpackWriter) BeginMap(size int) error   { return mw.begin(true, size) }
func (mw *MsgpackWriter) EndMap() error            { return mw.end(true) }

func (mw *MsgpackWriter) WriteInt(v int64) error {
	mw.value()
	return mw.encoder().EncodeInt(v)
}

func (mw *MsgpackWriter) WriteString(s string) error {
	mw.value()
	return mw.encoder().EncodeString(s)
}

type msgpackReadFrame struct {
	isMap     bool
	remaining int
}

// MsgpackReader reads a token stream from MessagePack input.
type MsgpackReader struct {
	dec    *msgpack.Decoder
	frames []msgpackReadFrame
}

// NewMsgpackReader returns a Reader consuming MessagePack from r.
func NewMsgpackReader(r io.Reader) *MsgpackReader {
	return &MsgpackReader{dec: msgpack.NewDecoder(r)}
}

// take accounts for one value read from the innermost frame.
func (mr *MsgpackReader) take() error {
	if len(mr.frames) == 0 {
		return nil
	}
	f := &mr.frames[len(mr.frames)-1]
	if f.remaining == 0 {
		return Malformed("read past end of %s", containerName(f.isMap))
	}
	f.remaining--
	return nil
}

func (mr *MsgpackReader) Peek() (Token, error) {
	if len(mr.frames) > 0 && mr.frames[len(mr.frames)-1].remaining == 0 {
		return TokenEnd, nil
	}
	c, err := mr.dec.PeekCode()
	if err != nil {
		return TokenInvalid, mr.wrap(err)
	}
	switch {
	case isIntCode(c):
		return TokenInt, nil
	case msgpcode.IsString(c):
		return TokenString, nil
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		return TokenArray, nil
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		return TokenMap, nil
	case c == msgpcode.Nil:
		return TokenNull, nil
	}
	return TokenInvalid, nil
}

func (mr *MsgpackReader) begin(isMap bool) (int, error) {
	if err := mr.take(); err != nil {
		return 0, err
	}
	var n int
	var err error
	if isMap {
		n, err = mr.dec.DecodeMapLen()
	} else {
		n, err = mr.dec.DecodeArrayLen()
	}
	if err != nil {
		return 0, mr.wrap(err)
	}
	if n < 0 {
		return 0, Malformed("expected %s, got nil", containerName(isMap))
	}
	remaining := n
	if isMap {
		remaining = 2 * n
	}
	mr.frames = append(mr.frames, msgpackReadFrame{isMap: isMap, remaining: remaining})
	return n, nil
}

func (mr *MsgpackReader) end(isMap bool) error {
	if len(mr.frames) == 0 || mr.frames[len(mr.frames)-1].isMap != isMap {
		return fmt.Errorf("%w: unbalanced end of %s", ErrFraming, containerName(isMap))
	}
	f := mr.frames[len(mr.frames)-1]
	if f.remaining != 0 {
		return Malformed("%s closed with %d unread values", containerName(isMap), f.remaining)
	}
	mr.frames = mr.frames[:len(mr.frames)-1]
	return nil
}

func (mr *MsgpackReader) BeginArray() (int, error) { return mr.begin(false) }
func (mr *MsgpackReader) EndArray() error          { return mr.end(false) }
func (mr *MsgpackReader) BeginMap() (int, error)   { return mr.begin(true) }
func (mr *MsgpackReader) EndMap() error            { return mr.end(true) }

func (mr *MsgpackReader) More() (bool, error) {
	if len(mr.frames) == 0 {
		return false, fmt.Errorf("%w: More outside of a container", ErrFraming)
	}
	return mr.frames[len(mr.frames)-1].remaining > 0, nil
}

func (mr *MsgpackReader) ReadInt() (int64, error) {
	if err := mr.take(); err != nil {
		return 0, err
	}
	c, err := mr.dec.PeekCode()
	if err != nil {
		return 0, mr.wrap(err)
	}
	switch {
	case c == msgpcode.Uint64:
		u, err := mr.dec.DecodeUint64()
		if err != nil {
			return 0, mr.wrap(err)
		}
		if u > math.MaxInt64 {
			return 0, Malformed("integer %d overflows int64", u)
		}
		return int64(u), nil
	case isIntCode(c):
		n, err := mr.dec.DecodeInt64()
		if err != nil {
			return 0, mr.wrap(err)
		}
		return n, nil
	}
	return 0, Malformed("expected integer, got MessagePack code 0x%02x", c)
}

func (mr *MsgpackReader) ReadString() (string, error) {
	if err := mr.take(); err != nil {
		return "", err
	}
	s, err := mr.dec.DecodeString()
	if err != nil {
		return "", mr.wrap(err)
	}
	return s, nil
}

// ReadNull consumes a MessagePack nil.
func (mr *MsgpackReader) ReadNull() error {
	if err := mr.take(); err != nil {
		return err
	}
	if err := mr.dec.DecodeNil(); err != nil {
		return mr.wrap(err)
	}
	return nil
}

func isIntCode(c byte) bool {
	switch c {
	case msgpcode.Int8, msgpcode.Int16, msgpcode.Int32, msgpcode.Int64,
		msgpcode.Uint8, msgpcode.Uint16, msgpcode.Uint32, msgpcode.Uint64:
		return true
	}
	return msgpcode.IsFixedNum(c)
}

func (mr *MsgpackReader) wrap(err error) error {
	if err == io.EOF {
		return Malformed("unexpected end of MessagePack input")
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
