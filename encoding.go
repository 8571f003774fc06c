package presto

import (
	"fmt"
	"io"
	"strings"

	"github.com/hugr-lab/presto-go/wire"
)

// Encoding names a segment encoding, the format of a spooled result
// segment: a wire format optionally followed by a compression suffix.
type Encoding string

const (
	EncodingJSON        Encoding = "json"
	EncodingJSONZstd    Encoding = "json+zstd"
	EncodingJSONLZ4     Encoding = "json+lz4"
	EncodingMsgpack     Encoding = "msgpack"
	EncodingMsgpackZstd Encoding = "msgpack+zstd"
	EncodingMsgpackLZ4  Encoding = "msgpack+lz4"
)

// Encodings lists the supported encodings in order of preference.
var Encodings = []Encoding{
	EncodingJSONZstd,
	EncodingJSONLZ4,
	EncodingJSON,
	EncodingMsgpackZstd,
	EncodingMsgpackLZ4,
	EncodingMsgpack,
}

// ParseEncoding returns the encoding named s, ignoring case.
func ParseEncoding(s string) (Encoding, error) {
	e := Encoding(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Encodings {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
}

// Format returns the wire format part, "json" or "msgpack".
func (e Encoding) Format() string {
	format, _, _ := strings.Cut(string(e), "+")
	return format
}

// Compression returns the compression part, "zstd", "lz4" or "".
func (e Encoding) Compression() string {
	_, compression, _ := strings.Cut(string(e), "+")
	return compression
}

// NewWriter returns a wire.Writer producing the uncompressed format on w.
func (e Encoding) NewWriter(w io.Writer) wire.Writer {
	if e.Format() == "msgpack" {
		return wire.NewMsgpackWriter(w)
	}
	return wire.NewJSONWriter(w)
}

// NewReader returns a wire.Reader consuming the uncompressed format from r.
func (e Encoding) NewReader(r io.Reader) wire.Reader {
	if e.Format() == "msgpack" {
		return wire.NewMsgpackReader(r)
	}
	return wire.NewJSONReader(r)
}

func (e Encoding) String() string { return string(e) }
