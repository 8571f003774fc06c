// Package types defines the runtime type descriptors of the Presto result wire format.
//
// A Type describes the shape of a column value independently of any Go type:
// scalar integers and varchars, arrays, maps, named-field rows and positional
// tuples, nested to any finite depth. Types are immutable values compared by
// structure with Equal.
package types

import (
	"fmt"
	"slices"
)

// Kind identifies the variant of a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInteger
	KindVarchar
	KindTuple
	KindRow
	KindArray
	KindMap
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInteger: "integer",
	KindVarchar: "varchar",
	KindTuple:   "tuple",
	KindRow:     "row",
	KindArray:   "array",
	KindMap:     "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// RawType is the coarse wire-level category of a Type, used for type tagging
// in column signatures.
type RawType string

const (
	RawInteger RawType = "integer"
	RawVarchar RawType = "varchar"
	RawRow     RawType = "row"
	RawArray   RawType = "array"
	RawMap     RawType = "map"
)

// Field is a named member of a row type.
type Field struct {
	Name string
	Type Type
}

// Type is a recursive runtime type descriptor.
// The zero value is invalid; build types with the constructor functions.
type Type struct {
	kind   Kind
	elems  []Type  // array: [elem]; map: [key, value]; tuple: elements
	fields []Field // row
}

// Integer returns the scalar integer type.
func Integer() Type { return Type{kind: KindInteger} }

// Varchar returns the scalar varchar type.
func Varchar() Type { return Type{kind: KindVarchar} }

// ArrayOf returns the array type with the given element type.
func ArrayOf(elem Type) Type {
	return Type{kind: KindArray, elems: []Type{elem}}
}

// MapOf returns the map type with the given key and value types.
func MapOf(key, value Type) Type {
	return Type{kind: KindMap, elems: []Type{key, value}}
}

// RowOf returns a row type with the given fields in declaration order.
// Field names are not required to be unique.
func RowOf(fields ...Field) Type {
	return Type{kind: KindRow, fields: slices.Clone(fields)}
}

// TupleOf returns a positional tuple type with the given element types.
func TupleOf(elems ...Type) Type {
	return Type{kind: KindTuple, elems: slices.Clone(elems)}
}

// Kind returns the variant of t.
func (t Type) Kind() Kind { return t.kind }

// IsValid reports whether t was built by a constructor.
func (t Type) IsValid() bool { return t.kind != KindInvalid }

// RawType returns the wire category of t.
//
// Tuples report RawRow, the same category as named rows. Engines tag
// anonymous and named rows identically on the wire, and this aliasing is kept
// as a compatibility contract.
func (t Type) RawType() RawType {
	switch t.kind {
	case KindInteger:
		return RawInteger
	case KindVarchar:
		return RawVarchar
	case KindTuple, KindRow:
		return RawRow
	case KindArray:
		return RawArray
	case KindMap:
		return RawMap
	}
	return ""
}

// Elem returns the element type of an array. It panics for other kinds.
func (t Type) Elem() Type {
	t.mustBe(KindArray, "Elem")
	return t.elems[0]
}

// Key returns the key type of a map. It panics for other kinds.
func (t Type) Key() Type {
	t.mustBe(KindMap, "Key")
	return t.elems[0]
}

// Value returns the value type of a map. It panics for other kinds.
func (t Type) Value() Type {
	t.mustBe(KindMap, "Value")
	return t.elems[1]
}

// Fields returns a copy of the fields of a row. It panics for other kinds.
func (t Type) Fields() []Field {
	t.mustBe(KindRow, "Fields")
	return slices.Clone(t.fields)
}

// Elems returns a copy of the element types of a tuple. It panics for other kinds.
func (t Type) Elems() []Type {
	t.mustBe(KindTuple, "Elems")
	return slices.Clone(t.elems)
}

// NumFields returns the number of members of a row or tuple.
// It panics for other kinds.
func (t Type) NumFields() int {
	switch t.kind {
	case KindRow:
		return len(t.fields)
	case KindTuple:
		return len(t.elems)
	}
	panic(fmt.Sprintf("types: NumFields of %s type", t.kind))
}

// Field returns the i-th member of a row or tuple. Tuple members have an
// empty name. It panics for other kinds or an out of range index.
func (t Type) Field(i int) Field {
	switch t.kind {
	case KindRow:
		return t.fields[i]
	case KindTuple:
		return Field{Type: t.elems[i]}
	}
	panic(fmt.Sprintf("types: Field of %s type", t.kind))
}

// Equal reports whether t and u describe the same shape.
func (t Type) Equal(u Type) bool {
	if t.kind != u.kind {
		return false
	}
	switch t.kind {
	case KindRow:
		return slices.EqualFunc(t.fields, u.fields, func(a, b Field) bool {
			return a.Name == b.Name && a.Type.Equal(b.Type)
		})
	case KindArray, KindMap, KindTuple:
		return slices.EqualFunc(t.elems, u.elems, Type.Equal)
	}
	return true
}

// String returns the canonical type string of t.
func (t Type) String() string {
	return FullType(t)
}

func (t Type) mustBe(k Kind, op string) {
	if t.kind != k {
		panic(fmt.Sprintf("types: %s of %s type", op, t.kind))
	}
}
