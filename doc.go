// Package presto provides a bidirectional typed codec between Go values and
// the result wire format of Presto and Trino.
//
// The package maps statically typed Go values onto the engine's dynamic,
// self-describing type system:
//   - types.Type describes a wire type: integer, varchar, array, map, row
//     and anonymous rows (tuples)
//   - Codec[T] associates a Go type with a descriptor, encodes values
//     through borrowed views and decodes them through decoders seeded with
//     the descriptor announced by the sender
//   - DataSet[T] encodes a table into the {"columns", "data"} envelope of a
//     query result and decodes it back
//
// Codecs never see bytes. They write and read tokens of package wire, which
// has JSON, MessagePack and generic Go value formats; package columnar adds
// Apache Arrow arrays and IPC streams.
//
// # Quick Start
//
//	type User struct {
//	    ID   int32
//	    Tags []string
//	}
//
//	userCodec := presto.Row(
//	    presto.Field("id", presto.Int32(), func(u *User) *int32 { return &u.ID }),
//	    presto.Field("tags", presto.Slice(presto.String()), func(u *User) *[]string { return &u.Tags }),
//	)
//
//	users := []User{{ID: 1, Tags: []string{"a", "b"}}, {ID: 2, Tags: []string{}}}
//	var buf bytes.Buffer
//	err := presto.NewDataSet(userCodec, users).Encode(wire.NewJSONWriter(&buf))
//	// {"columns":[{"name":"id","type":"integer",...},{"name":"tags","type":"array(varchar)",...}],
//	//  "data":[[1,["a","b"]],[2,[]]]}
//
//	decoded, err := presto.DecodeDataSet(wire.NewJSONReader(&buf), userCodec)
//
// # Decoding
//
// Decoding is driven by the descriptor, not by the Go type alone. Codec.Seed
// checks the descriptor against the codec and fails with ErrInvalidShape
// before reading input; containers seed a fresh child decoder for every
// element with the child descriptor. Input tokens of the wrong kind fail
// with ErrMalformedWireValue. Both are reported as *Error with the path of
// the failing value.
//
// A row codec accepts row and tuple descriptors of the same arity: both
// share the row category on the wire and members are matched by position.
//
// # Segments
//
// Serializer encodes a DataSet as a spooled segment in one of the Encodings
// (json, msgpack, optionally compressed with zstd or lz4).
//
// # Logging
//
// The Serializer logs through the slog.Logger given in Config, or
// slog.Default() if none is set. Codecs do not log.
package presto
