package presto

import (
	"iter"
	"slices"

	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

// Column is the header entry of one result column.
type Column struct {
	Name          string
	Type          string
	TypeSignature types.TypeSignature
}

// Encode writes the column as {"name", "type", "typeSignature"}.
func (c Column) Encode(w wire.Writer) error {
	if err := w.BeginMap(3); err != nil {
		return err
	}
	if err := w.WriteString("name"); err != nil {
		return err
	}
	if err := w.WriteString(c.Name); err != nil {
		return err
	}
	if err := w.WriteString("type"); err != nil {
		return err
	}
	if err := w.WriteString(c.Type); err != nil {
		return err
	}
	if err := w.WriteString("typeSignature"); err != nil {
		return err
	}
	if err := c.TypeSignature.Encode(w); err != nil {
		return err
	}
	return w.EndMap()
}

// DecodeColumn reads a column header entry. Keys may appear in any order
// and unknown keys are skipped.
func DecodeColumn(r wire.Reader) (Column, error) {
	var c Column
	if _, err := r.BeginMap(); err != nil {
		return c, err
	}
	for {
		more, err := r.More()
		if err != nil {
			return c, err
		}
		if !more {
			break
		}
		key, err := r.ReadString()
		if err != nil {
			return c, err
		}
		switch key {
		case "name":
			c.Name, err = r.ReadString()
		case "type":
			c.Type, err = r.ReadString()
		case "typeSignature":
			c.TypeSignature, err = types.DecodeSignature(r)
		default:
			err = wire.Skip(r)
		}
		if err != nil {
			return c, err
		}
	}
	return c, r.EndMap()
}

// Columns returns the header of a table whose rows have type rowType.
// rowType must be a row with at least one field; tuples and scalars fail
// with ErrUnsupportedRowType.
func Columns(rowType types.Type) ([]Column, error) {
	if rowType.Kind() != types.KindRow || rowType.NumFields() == 0 {
		return nil, &Error{
			Err:    ErrUnsupportedRowType,
			Type:   rowType,
			Detail: "table rows must be a row with at least one field",
		}
	}
	cols := make([]Column, rowType.NumFields())
	for i, f := range rowType.Fields() {
		cols[i] = Column{
			Name:          f.Name,
			Type:          types.FullType(f.Type),
			TypeSignature: types.Signature(f.Type),
		}
	}
	return cols, nil
}

// RowType rebuilds the row descriptor described by a header. Each column
// type is taken from its signature, falling back to the type string when
// the signature is absent.
func RowType(cols []Column) (types.Type, error) {
	fields := make([]types.Field, len(cols))
	for i, c := range cols {
		var (
			t   types.Type
			err error
		)
		if c.TypeSignature.RawType != "" {
			t, err = types.FromSignature(c.TypeSignature)
		} else {
			t, err = types.Parse(c.Type)
		}
		if err != nil {
			return types.Type{}, &Error{Err: ErrMalformedWireValue, Path: ".columns" + indexSeg(i), Cause: err}
		}
		fields[i] = types.Field{Name: c.Name, Type: t}
	}
	return types.RowOf(fields...), nil
}

// Table is the non-generic face of a DataSet.
type Table interface {
	Encodable
	Decode(r wire.Reader) error
	Len() int
}

// DataSet is an ordered collection of rows of type T together with the
// codec that describes them. It encodes to the result envelope
//
//	{"columns": [{"name": ..., "type": ..., "typeSignature": ...}, ...], "data": [[...], ...]}
type DataSet[T any] struct {
	codec Codec[T]
	rows  []T
}

// NewDataSet returns a DataSet over rows. The DataSet borrows rows.
func NewDataSet[T any](codec Codec[T], rows []T) *DataSet[T] {
	return &DataSet[T]{codec: codec, rows: rows}
}

// Codec returns the row codec.
func (d *DataSet[T]) Codec() Codec[T] { return d.codec }

// Rows returns the rows.
func (d *DataSet[T]) Rows() []T { return d.rows }

// Len returns the number of rows.
func (d *DataSet[T]) Len() int { return len(d.rows) }

// All iterates the rows with their index.
func (d *DataSet[T]) All() iter.Seq2[int, T] { return slices.All(d.rows) }

// Columns returns the header derived from the row codec's type.
func (d *DataSet[T]) Columns() ([]Column, error) {
	cols, err := Columns(d.codec.Type())
	if e, ok := err.(*Error); ok {
		c := *e
		c.GoType = goTypeName[T]()
		return cols, &c
	}
	return cols, err
}

// Data returns the rows as an array of row values, the "data" member of
// the envelope.
func (d *DataSet[T]) Data() Encodable {
	return Lazy(Views(d.codec, d.rows), len(d.rows))
}

// Encode writes the envelope. The row type is validated before anything is
// written, so an unsupported row type produces no output.
func (d *DataSet[T]) Encode(w wire.Writer) error {
	cols, err := d.Columns()
	if err != nil {
		return err
	}
	if err := w.BeginMap(2); err != nil {
		return err
	}
	if err := w.WriteString("columns"); err != nil {
		return err
	}
	if err := w.BeginArray(len(cols)); err != nil {
		return err
	}
	for _, c := range cols {
		if err := c.Encode(w); err != nil {
			return err
		}
	}
	if err := w.EndArray(); err != nil {
		return err
	}
	if err := w.WriteString("data"); err != nil {
		return err
	}
	if err := d.Data().Encode(w); err != nil {
		return err
	}
	return w.EndMap()
}

// Decode replaces the rows with those read from an envelope.
//
// The envelope members may come in any order and unknown members (such as
// the other fields of a query results document) are skipped. When "columns"
// precedes "data", rows are decoded against the descriptor rebuilt from the
// header; otherwise against the codec's own type. A missing "data" member
// means no rows.
func (d *DataSet[T]) Decode(r wire.Reader) error {
	rowType := d.codec.Type()
	rows := []T{}
	if _, err := r.BeginMap(); err != nil {
		return decodeError(err)
	}
	for {
		more, err := r.More()
		if err != nil {
			return decodeError(err)
		}
		if !more {
			break
		}
		key, err := r.ReadString()
		if err != nil {
			return decodeError(err)
		}
		switch key {
		case "columns":
			cols, err := decodeColumns(r)
			if err != nil {
				return err
			}
			if rowType, err = RowType(cols); err != nil {
				return err
			}
		case "data":
			if rows, err = decodeRows(r, d.codec, rowType); err != nil {
				return atPath(err, ".data")
			}
		default:
			if err := wire.Skip(r); err != nil {
				return decodeError(err)
			}
		}
	}
	if err := r.EndMap(); err != nil {
		return decodeError(err)
	}
	d.rows = rows
	return nil
}

func decodeColumns(r wire.Reader) ([]Column, error) {
	n, err := r.BeginArray()
	if err != nil {
		return nil, atPath(err, ".columns")
	}
	cols := make([]Column, 0, max(n, 0))
	for i := 0; ; i++ {
		more, err := r.More()
		if err != nil {
			return nil, atPath(err, ".columns")
		}
		if !more {
			break
		}
		c, err := DecodeColumn(r)
		if err != nil {
			return nil, atPath(err, ".columns"+indexSeg(i))
		}
		cols = append(cols, c)
	}
	if err := r.EndArray(); err != nil {
		return nil, atPath(err, ".columns")
	}
	return cols, nil
}

// DecodeRows reads an array of rows of type rowType, as found in the "data"
// member of the envelope. The codec is seeded once before reading, so a
// mismatched descriptor fails with ErrInvalidShape even for an empty array.
func DecodeRows[T any](r wire.Reader, codec Codec[T], rowType types.Type) ([]T, error) {
	return decodeRows(r, codec, rowType)
}

func decodeRows[T any](r wire.Reader, codec Codec[T], rowType types.Type) ([]T, error) {
	first, err := codec.Seed(rowType)
	if err != nil {
		return nil, err
	}
	n, err := r.BeginArray()
	if err != nil {
		return nil, decodeError(err)
	}
	rows := make([]T, 0, max(n, 0))
	for i := 0; ; i++ {
		more, err := r.More()
		if err != nil {
			return nil, atPath(err, indexSeg(i))
		}
		if !more {
			break
		}
		dec := first
		if i > 0 {
			if dec, err = codec.Seed(rowType); err != nil {
				return nil, atPath(err, indexSeg(i))
			}
		}
		row, err := dec.Decode(r)
		if err != nil {
			return nil, atPath(err, indexSeg(i))
		}
		rows = append(rows, row)
	}
	if err := r.EndArray(); err != nil {
		return nil, decodeError(err)
	}
	return rows, nil
}

// DecodeDataSet reads an envelope into a new DataSet.
func DecodeDataSet[T any](r wire.Reader, codec Codec[T]) (*DataSet[T], error) {
	d := NewDataSet(codec, nil)
	if err := d.Decode(r); err != nil {
		return nil, err
	}
	return d, nil
}
