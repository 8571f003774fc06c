package columnar

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"

	presto "github.com/hugr-lab/presto-go"
)

// WriteIPC writes ds to w as an Arrow IPC stream holding one record batch.
func WriteIPC[T any](w io.Writer, ds *presto.DataSet[T], opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	record, err := EncodeRecord(ds, opts)
	if err != nil {
		return err
	}
	defer record.Release()

	ipcOpts := []ipc.Option{ipc.WithSchema(record.Schema()), ipc.WithAllocator(opts.Allocator)}
	switch opts.Compression {
	case CompressionZstd:
		ipcOpts = append(ipcOpts, ipc.WithZstd())
	case CompressionLZ4:
		ipcOpts = append(ipcOpts, ipc.WithLZ4())
	}

	writer := ipc.NewWriter(w, ipcOpts...)
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return nil
}

// ReadIPC reads every record batch of an Arrow IPC stream into a DataSet.
// The codec is checked against the stream schema even when the stream holds
// no batches. Compressed bodies are detected from the stream.
func ReadIPC[T any](r io.Reader, codec presto.Codec[T], opts Options) (*presto.DataSet[T], error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	reader, err := ipc.NewReader(r, ipc.WithAllocator(opts.Allocator))
	if err != nil {
		return nil, &presto.Error{Err: presto.ErrMalformedWireValue, Detail: "invalid IPC stream", Cause: err}
	}
	defer reader.Release()

	rowType, err := RowType(reader.Schema())
	if err != nil {
		return nil, &presto.Error{Err: presto.ErrMalformedWireValue, Detail: "invalid schema", Cause: err}
	}
	if _, err := codec.Seed(rowType); err != nil {
		return nil, err
	}

	rows := []T{}
	for reader.Next() {
		batch, err := DecodeRecord(reader.RecordBatch(), codec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, &presto.Error{Err: presto.ErrMalformedWireValue, Detail: "invalid IPC stream", Cause: err}
	}
	return presto.NewDataSet(codec, rows), nil
}
