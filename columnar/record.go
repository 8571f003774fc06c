package columnar

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	presto "github.com/hugr-lab/presto-go"
)

// Compression codecs for IPC record batch bodies.
const (
	CompressionNone = ""
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// Options configures record conversion and IPC streams.
type Options struct {
	// OPTIONAL: Allocator for builders and IPC buffers.
	// Default: memory.DefaultAllocator
	Allocator memory.Allocator

	// OPTIONAL: Compression of IPC record batch bodies: CompressionNone,
	// CompressionZstd or CompressionLZ4.
	Compression string
}

func (o Options) withDefaults() (Options, error) {
	switch o.Compression {
	case CompressionNone, CompressionZstd, CompressionLZ4:
	default:
		return o, fmt.Errorf("%w: unknown IPC compression %q", presto.ErrInvalidConfig, o.Compression)
	}
	if o.Allocator == nil {
		o.Allocator = memory.DefaultAllocator
	}
	return o, nil
}

// EncodeRecord builds a record batch holding the rows of ds, one column per
// row member. The caller must Release the result.
func EncodeRecord[T any](ds *presto.DataSet[T], opts Options) (arrow.RecordBatch, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if _, err := ds.Columns(); err != nil {
		return nil, err
	}
	schema, err := Schema(ds.Codec().Type())
	if err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(opts.Allocator, schema)
	defer builder.Release()

	if err := ds.Data().Encode(NewRecordWriter(builder)); err != nil {
		return nil, err
	}
	return builder.NewRecordBatch(), nil
}

// DecodeRecord reads the rows of rec. The row descriptor is rebuilt from the
// schema, so codecs are checked against it before any value is read.
func DecodeRecord[T any](rec arrow.RecordBatch, codec presto.Codec[T]) ([]T, error) {
	rowType, err := RowType(rec.Schema())
	if err != nil {
		return nil, &presto.Error{Err: presto.ErrMalformedWireValue, Detail: "invalid schema", Cause: err}
	}
	return presto.DecodeRows(NewRecordReader(rec), codec, rowType)
}

// AppendValues appends values to b with codec. The builder type must match
// ArrowType of the codec's descriptor.
func AppendValues[T any](b array.Builder, codec presto.Codec[T], values []T) error {
	w := NewWriter(b)
	for i := range values {
		if err := codec.View(&values[i]).Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeArray reads every element of arr with codec.
func DecodeArray[T any](arr arrow.Array, codec presto.Codec[T]) ([]T, error) {
	t, err := FromArrowType(arr.DataType())
	if err != nil {
		return nil, &presto.Error{Err: presto.ErrMalformedWireValue, Detail: "invalid array type", Cause: err}
	}
	if _, err := codec.Seed(t); err != nil {
		return nil, err
	}
	r := NewReader(arr)
	out := make([]T, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		v, err := presto.Decode(r, codec, t)
		if err != nil {
			var e *presto.Error
			if errors.As(err, &e) {
				c := *e
				c.Path = fmt.Sprintf("[%d]", i) + c.Path
				return nil, &c
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
