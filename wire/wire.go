// Package wire defines the token-level contract between typed codecs and
// concrete wire formats.
//
// Codecs never see bytes. They emit and consume a small structural token
// vocabulary: arrays, maps, integers and strings. A format (JSON, MessagePack,
// generic Go values, Arrow arrays) maps those tokens to its own framing.
//
// Size hints passed to BeginArray and BeginMap may be negative to signal an
// unknown length. Every Writer accepts both styles; formats that need the
// length up front buffer unsized frames until they are closed.
package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates the input does not match the token a decoder
	// expected, e.g. a string where an integer is required, an integer that
	// overflows its target, or broken framing.
	ErrMalformed = errors.New("malformed wire value")

	// ErrFraming indicates an encoder produced an inconsistent token stream,
	// e.g. a size hint that disagrees with the number of written elements or
	// unbalanced Begin/End calls.
	ErrFraming = errors.New("inconsistent wire framing")

	// ErrUnsupported indicates the format cannot represent the token, e.g. a
	// composite JSON object key.
	ErrUnsupported = errors.New("unsupported by wire format")
)

// Token classifies the next value of a Reader.
type Token uint8

const (
	TokenInvalid Token = iota
	TokenInt
	TokenString
	TokenArray
	TokenMap
	TokenNull
	// TokenEnd means the enclosing array or map has no more values.
	TokenEnd
)

var tokenNames = [...]string{
	TokenInvalid: "invalid",
	TokenInt:     "int",
	TokenString:  "string",
	TokenArray:   "array",
	TokenMap:     "map",
	TokenNull:    "null",
	TokenEnd:     "end",
}

func (t Token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", uint8(t))
}

// Writer receives a token stream from an encoder.
//
// Map entries are written as alternating key and value tokens between
// BeginMap and EndMap; the size of a map counts entries, not tokens.
type Writer interface {
	BeginArray(size int) error
	EndArray() error
	BeginMap(size int) error
	EndMap() error
	WriteInt(v int64) error
	WriteString(s string) error
}

// Reader yields a token stream to a decoder.
//
// BeginArray and BeginMap return the number of elements (entries for maps)
// when the format frames it, or -1. Decoders loop on More until it reports
// false and then call the matching End method.
type Reader interface {
	Peek() (Token, error)
	BeginArray() (int, error)
	EndArray() error
	BeginMap() (int, error)
	EndMap() error
	More() (bool, error)
	ReadInt() (int64, error)
	ReadString() (string, error)
}

// NullReader is implemented by readers whose format can carry null values.
type NullReader interface {
	ReadNull() error
}

// Malformed returns an error wrapping ErrMalformed.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Skip consumes the next value of r, including nested arrays and maps.
func Skip(r Reader) error {
	tok, err := r.Peek()
	if err != nil {
		return err
	}
	switch tok {
	case TokenInt:
		_, err = r.ReadInt()
		return err
	case TokenString:
		_, err = r.ReadString()
		return err
	case TokenNull:
		nr, ok := r.(NullReader)
		if !ok {
			return Malformed("reader cannot skip null")
		}
		return nr.ReadNull()
	case TokenArray:
		if _, err := r.BeginArray(); err != nil {
			return err
		}
		if err := skipAll(r); err != nil {
			return err
		}
		return r.EndArray()
	case TokenMap:
		if _, err := r.BeginMap(); err != nil {
			return err
		}
		if err := skipAll(r); err != nil {
			return err
		}
		return r.EndMap()
	}
	return Malformed("cannot skip %s token", tok)
}

func skipAll(r Reader) error {
	for {
		more, err := r.More()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := Skip(r); err != nil {
			return err
		}
	}
}

// IsNull reports whether the next value of r is null, consuming it if so.
func IsNull(r Reader) (bool, error) {
	tok, err := r.Peek()
	if err != nil {
		return false, err
	}
	if tok != TokenNull {
		return false, nil
	}
	nr, ok := r.(NullReader)
	if !ok {
		return false, Malformed("reader cannot consume null")
	}
	return true, nr.ReadNull()
}
