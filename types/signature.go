package types

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/hugr-lab/presto-go/wire"
)

// ArgumentKind tags the payload of a signature argument.
type ArgumentKind string

const (
	ArgumentType      ArgumentKind = "TYPE"
	ArgumentNamedType ArgumentKind = "NAMED_TYPE"
	ArgumentLong      ArgumentKind = "LONG"
)

// UnboundedVarcharLength is the LONG argument of an unbounded varchar signature.
const UnboundedVarcharLength = math.MaxInt32

// ErrInvalidSignature is returned when a type signature cannot be mapped to a Type.
var ErrInvalidSignature = errors.New("invalid type signature")

// TypeSignature is the structured form of a column type as sent in result
// headers:
//
//	{"rawType": "array", "arguments": [{"kind": "TYPE", "value": {...}}]}
type TypeSignature struct {
	RawType   RawType
	Arguments []SignatureArgument
}

// SignatureArgument is one argument of a TypeSignature. Exactly one payload
// field is meaningful, selected by Kind.
type SignatureArgument struct {
	Kind  ArgumentKind
	Type  *TypeSignature      // ArgumentType
	Named *NamedTypeSignature // ArgumentNamedType
	Long  int64               // ArgumentLong
}

// NamedTypeSignature is a row member. FieldName is nil for anonymous members.
type NamedTypeSignature struct {
	FieldName     *string
	TypeSignature TypeSignature
}

// Signature returns the type signature of t.
func Signature(t Type) TypeSignature {
	sig := TypeSignature{RawType: t.RawType(), Arguments: []SignatureArgument{}}
	switch t.kind {
	case KindVarchar:
		sig.Arguments = append(sig.Arguments, SignatureArgument{Kind: ArgumentLong, Long: UnboundedVarcharLength})
	case KindArray, KindMap:
		for _, e := range t.elems {
			s := Signature(e)
			sig.Arguments = append(sig.Arguments, SignatureArgument{Kind: ArgumentType, Type: &s})
		}
	case KindTuple:
		for _, e := range t.elems {
			sig.Arguments = append(sig.Arguments, SignatureArgument{
				Kind:  ArgumentNamedType,
				Named: &NamedTypeSignature{TypeSignature: Signature(e)},
			})
		}
	case KindRow:
		for _, f := range t.fields {
			name := f.Name
			sig.Arguments = append(sig.Arguments, SignatureArgument{
				Kind:  ArgumentNamedType,
				Named: &NamedTypeSignature{FieldName: &name, TypeSignature: Signature(f.Type)},
			})
		}
	}
	return sig
}

// FromSignature maps a type signature back to a Type. A row signature whose
// members are all anonymous maps to a tuple.
func FromSignature(sig TypeSignature) (Type, error) {
	switch sig.RawType {
	case RawInteger:
		return Integer(), nil
	case RawVarchar:
		return Varchar(), nil
	case RawArray:
		args, err := typeArguments(sig, 1)
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(args[0]), nil
	case RawMap:
		args, err := typeArguments(sig, 2)
		if err != nil {
			return Type{}, err
		}
		return MapOf(args[0], args[1]), nil
	case RawRow:
		fields := make([]Field, 0, len(sig.Arguments))
		named := false
		for i, arg := range sig.Arguments {
			if arg.Kind != ArgumentNamedType || arg.Named == nil {
				return Type{}, fmt.Errorf("%w: row argument %d is %s", ErrInvalidSignature, i, arg.Kind)
			}
			t, err := FromSignature(arg.Named.TypeSignature)
			if err != nil {
				return Type{}, err
			}
			f := Field{Type: t}
			if arg.Named.FieldName != nil {
				f.Name = *arg.Named.FieldName
				named = true
			}
			fields = append(fields, f)
		}
		if !named && len(fields) > 0 {
			elems := make([]Type, len(fields))
			for i, f := range fields {
				elems[i] = f.Type
			}
			return TupleOf(elems...), nil
		}
		return RowOf(fields...), nil
	}
	return Type{}, fmt.Errorf("%w: unsupported raw type %q", ErrInvalidSignature, sig.RawType)
}

func typeArguments(sig TypeSignature, n int) ([]Type, error) {
	if len(sig.Arguments) != n {
		return nil, fmt.Errorf("%w: %s takes %d type arguments, got %d",
			ErrInvalidSignature, sig.RawType, n, len(sig.Arguments))
	}
	out := make([]Type, n)
	for i, arg := range sig.Arguments {
		if arg.Kind != ArgumentType || arg.Type == nil {
			return nil, fmt.Errorf("%w: %s argument %d is %s", ErrInvalidSignature, sig.RawType, i, arg.Kind)
		}
		t, err := FromSignature(*arg.Type)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Encode writes the signature as a map with "rawType" and "arguments" keys.
func (s TypeSignature) Encode(w wire.Writer) error {
	if err := w.BeginMap(2); err != nil {
		return err
	}
	if err := writeEntry(w, "rawType", string(s.RawType)); err != nil {
		return err
	}
	if err := w.WriteString("arguments"); err != nil {
		return err
	}
	if err := w.BeginArray(len(s.Arguments)); err != nil {
		return err
	}
	for _, arg := range s.Arguments {
		if err := arg.encode(w); err != nil {
			return err
		}
	}
	if err := w.EndArray(); err != nil {
		return err
	}
	return w.EndMap()
}

func (a SignatureArgument) encode(w wire.Writer) error {
	if err := w.BeginMap(2); err != nil {
		return err
	}
	if err := writeEntry(w, "kind", string(a.Kind)); err != nil {
		return err
	}
	if err := w.WriteString("value"); err != nil {
		return err
	}
	switch a.Kind {
	case ArgumentLong:
		if err := w.WriteInt(a.Long); err != nil {
			return err
		}
	case ArgumentType:
		if a.Type == nil {
			return fmt.Errorf("%w: TYPE argument without type", ErrInvalidSignature)
		}
		if err := a.Type.Encode(w); err != nil {
			return err
		}
	case ArgumentNamedType:
		if a.Named == nil {
			return fmt.Errorf("%w: NAMED_TYPE argument without value", ErrInvalidSignature)
		}
		if err := a.Named.encode(w); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown argument kind %q", ErrInvalidSignature, a.Kind)
	}
	return w.EndMap()
}

func (n NamedTypeSignature) encode(w wire.Writer) error {
	size := 1
	if n.FieldName != nil {
		size = 2
	}
	if err := w.BeginMap(size); err != nil {
		return err
	}
	if n.FieldName != nil {
		if err := w.WriteString("fieldName"); err != nil {
			return err
		}
		if err := w.BeginMap(1); err != nil {
			return err
		}
		if err := writeEntry(w, "name", *n.FieldName); err != nil {
			return err
		}
		if err := w.EndMap(); err != nil {
			return err
		}
	}
	if err := w.WriteString("typeSignature"); err != nil {
		return err
	}
	if err := n.TypeSignature.Encode(w); err != nil {
		return err
	}
	return w.EndMap()
}

func writeEntry(w wire.Writer, key, value string) error {
	if err := w.WriteString(key); err != nil {
		return err
	}
	return w.WriteString(value)
}

// DecodeSignature reads a signature written by Encode. Keys may appear in any
// order and unknown keys are skipped.
func DecodeSignature(r wire.Reader) (TypeSignature, error) {
	var sig TypeSignature
	err := readObject(r, func(key string) error {
		switch key {
		case "rawType":
			s, err := r.ReadString()
			sig.RawType = RawType(s)
			return err
		case "arguments":
			if _, err := r.BeginArray(); err != nil {
				return err
			}
			sig.Arguments = []SignatureArgument{}
			for {
				more, err := r.More()
				if err != nil {
					return err
				}
				if !more {
					break
				}
				arg, err := decodeArgument(r)
				if err != nil {
					return err
				}
				sig.Arguments = append(sig.Arguments, arg)
			}
			return r.EndArray()
		}
		return wire.Skip(r)
	})
	return sig, err
}

// decodeArgument reads {"kind", "value"}. The value is interpreted by kind,
// so the kind must precede the value.
func decodeArgument(r wire.Reader) (SignatureArgument, error) {
	var arg SignatureArgument
	err := readObject(r, func(key string) error {
		switch key {
		case "kind":
			s, err := r.ReadString()
			arg.Kind = ArgumentKind(s)
			return err
		case "value":
			switch arg.Kind {
			case ArgumentLong:
				n, err := r.ReadInt()
				arg.Long = n
				return err
			case ArgumentType:
				s, err := DecodeSignature(r)
				arg.Type = &s
				return err
			case ArgumentNamedType:
				n, err := decodeNamed(r)
				arg.Named = &n
				return err
			case "":
				return wire.Malformed("signature argument value before kind")
			}
			return wire.Skip(r)
		}
		return wire.Skip(r)
	})
	return arg, err
}

func decodeNamed(r wire.Reader) (NamedTypeSignature, error) {
	var n NamedTypeSignature
	err := readObject(r, func(key string) error {
		switch key {
		case "fieldName":
			if null, err := wire.IsNull(r); err != nil || null {
				return err
			}
			return readObject(r, func(key string) error {
				if key != "name" {
					return wire.Skip(r)
				}
				s, err := r.ReadString()
				n.FieldName = &s
				return err
			})
		case "typeSignature":
			s, err := DecodeSignature(r)
			n.TypeSignature = s
			return err
		}
		return wire.Skip(r)
	})
	return n, err
}

// readObject iterates the string keys of a map, leaving each value to fn.
func readObject(r wire.Reader, fn func(key string) error) error {
	if _, err := r.BeginMap(); err != nil {
		return err
	}
	for {
		more, err := r.More()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		key, err := r.ReadString()
		if err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return r.EndMap()
}

// MarshalJSON encodes the signature in the wire JSON shape.
func (s TypeSignature) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Encode(wire.NewJSONWriter(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the wire JSON shape.
func (s *TypeSignature) UnmarshalJSON(data []byte) error {
	sig, err := DecodeSignature(wire.NewJSONReader(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}
