// Package columnar maps result tables onto Apache Arrow.
//
// Descriptors map to Arrow types (integer to int32, varchar to utf8, array to
// list, map to map, rows and tuples to struct), and Writer and Reader carry
// wire tokens into Arrow builders and out of Arrow arrays, so every presto
// codec works unchanged on columnar data.
package columnar

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	presto "github.com/hugr-lab/presto-go"
	"github.com/hugr-lab/presto-go/types"
)

// MetadataKey is the schema field metadata key holding the canonical type
// string of a column.
const MetadataKey = "presto.type"

var (
	// ErrUnsupportedType indicates an Arrow type without a descriptor.
	ErrUnsupportedType = errors.New("unsupported arrow type")

	// ErrTypeMismatch indicates a token that does not fit the Arrow builder
	// it is written to.
	ErrTypeMismatch = errors.New("arrow builder type mismatch")
)

// ArrowType returns the Arrow type of t. Tuples map to structs with empty
// field names.
func ArrowType(t types.Type) arrow.DataType {
	switch t.Kind() {
	case types.KindInteger:
		return arrow.PrimitiveTypes.Int32
	case types.KindVarchar:
		return arrow.BinaryTypes.String
	case types.KindArray:
		return arrow.ListOf(ArrowType(t.Elem()))
	case types.KindMap:
		return arrow.MapOf(ArrowType(t.Key()), ArrowType(t.Value()))
	case types.KindRow, types.KindTuple:
		fields := make([]arrow.Field, t.NumFields())
		for i := range fields {
			f := t.Field(i)
			fields[i] = arrow.Field{Name: f.Name, Type: ArrowType(f.Type)}
		}
		return arrow.StructOf(fields...)
	}
	panic(fmt.Sprintf("columnar: no arrow type for %s", t))
}

// FromArrowType returns the descriptor of an Arrow type. Signed integers up
// to 64 bits and unsigned integers up to 32 bits map to integer; values are
// range checked when read. A struct whose fields are all unnamed maps to a
// tuple.
func FromArrowType(dt arrow.DataType) (types.Type, error) {
	switch dt := dt.(type) {
	case *arrow.Int8Type, *arrow.Int16Type, *arrow.Int32Type, *arrow.Int64Type,
		*arrow.Uint8Type, *arrow.Uint16Type, *arrow.Uint32Type:
		return types.Integer(), nil
	case *arrow.StringType, *arrow.LargeStringType:
		return types.Varchar(), nil
	case *arrow.MapType:
		key, err := FromArrowType(dt.KeyType())
		if err != nil {
			return types.Type{}, err
		}
		item, err := FromArrowType(dt.ItemType())
		if err != nil {
			return types.Type{}, err
		}
		return types.MapOf(key, item), nil
	case *arrow.ListType:
		elem, err := FromArrowType(dt.Elem())
		if err != nil {
			return types.Type{}, err
		}
		return types.ArrayOf(elem), nil
	case *arrow.LargeListType:
		elem, err := FromArrowType(dt.Elem())
		if err != nil {
			return types.Type{}, err
		}
		return types.ArrayOf(elem), nil
	case *arrow.StructType:
		fields := make([]types.Field, dt.NumFields())
		named := false
		for i, f := range dt.Fields() {
			t, err := FromArrowType(f.Type)
			if err != nil {
				return types.Type{}, err
			}
			fields[i] = types.Field{Name: f.Name, Type: t}
			named = named || f.Name != ""
		}
		if !named && len(fields) > 0 {
			elems := make([]types.Type, len(fields))
			for i, f := range fields {
				elems[i] = f.Type
			}
			return types.TupleOf(elems...), nil
		}
		return types.RowOf(fields...), nil
	}
	return types.Type{}, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
}

// Schema returns the Arrow schema of a table with rows of type rowType:
// one field per row member, with the canonical type string stored under
// MetadataKey.
func Schema(rowType types.Type) (*arrow.Schema, error) {
	cols, err := presto.Columns(rowType)
	if err != nil {
		return nil, err
	}
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{
			Name:     c.Name,
			Type:     ArrowType(rowType.Field(i).Type),
			Metadata: arrow.NewMetadata([]string{MetadataKey}, []string{c.Type}),
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// RowType returns the row descriptor of a schema. Column types are read from
// MetadataKey when present and derived from the Arrow type otherwise.
func RowType(schema *arrow.Schema) (types.Type, error) {
	fields := make([]types.Field, schema.NumFields())
	for i, f := range schema.Fields() {
		var (
			t   types.Type
			err error
		)
		if idx := f.Metadata.FindKey(MetadataKey); idx >= 0 {
			t, err = types.Parse(f.Metadata.Values()[idx])
		} else {
			t, err = FromArrowType(f.Type)
		}
		if err != nil {
			return types.Type{}, fmt.Errorf("column %q: %w", f.Name, err)
		}
		fields[i] = types.Field{Name: f.Name, Type: t}
	}
	return types.RowOf(fields...), nil
}
