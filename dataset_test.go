package presto

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hugr-lab/presto-go/types"
	"github.com/hugr-lab/presto-go/wire"
)

const usersEnvelope = `{"columns":[` +
	`{"name":"id","type":"integer","typeSignature":{"rawType":"integer","arguments":[]}},` +
	`{"name":"tags","type":"array(varchar)","typeSignature":{"rawType":"array","arguments":[` +
	`{"kind":"TYPE","value":{"rawType":"varchar","arguments":[{"kind":"LONG","value":2147483647}]}}]}}` +
	`],"data":[[1,["a","b"]],[2,[]]]}`

func testUsers() []user {
	return []user{
		{ID: 1, Tags: []string{"a", "b"}},
		{ID: 2, Tags: []string{}},
	}
}

func TestDataSetEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDataSet(userCodec(), testUsers()).Encode(wire.NewJSONWriter(&buf)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := buf.String(); got != usersEnvelope {
		t.Errorf("got  %s\nwant %s", got, usersEnvelope)
	}
	if !strings.Contains(buf.String(), `"data":[[1,["a","b"]],[2,[]]]`) {
		t.Errorf("data member not found in %s", buf.String())
	}
}

func TestDataSetColumns(t *testing.T) {
	cols, err := NewDataSet(userCodec(), nil).Columns()
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("got %d columns", len(cols))
	}
	if cols[0].Name != "id" || cols[0].Type != "integer" {
		t.Errorf("column 0 = %+v", cols[0])
	}
	if cols[1].Name != "tags" || cols[1].Type != "array(varchar)" {
		t.Errorf("column 1 = %+v", cols[1])
	}
	if cols[1].TypeSignature.RawType != types.RawArray {
		t.Errorf("column 1 signature = %+v", cols[1].TypeSignature)
	}
}

func TestDataSetUnsupportedRowType(t *testing.T) {
	tests := []struct {
		name   string
		encode func(w wire.Writer) error
	}{
		{"scalar", func(w wire.Writer) error {
			return NewDataSet(Int32(), []int32{1}).Encode(w)
		}},
		{"empty row", func(w wire.Writer) error {
			return NewDataSet(Row[user](), []user{{}}).Encode(w)
		}},
		{"tuple", func(w wire.Writer) error {
			return NewDataSet(PairOf(Int32(), String()), nil).Encode(w)
		}},
		{"array", func(w wire.Writer) error {
			return NewDataSet(Slice(Int32()), nil).Encode(w)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := tt.encode(wire.NewJSONWriter(&buf))
			if !errors.Is(err, ErrUnsupportedRowType) {
				t.Fatalf("expected ErrUnsupportedRowType, got %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("expected no output, got %s", buf.String())
			}
		})
	}
}

func TestDecodeDataSet(t *testing.T) {
	ds, err := DecodeDataSet(wire.NewJSONReader(strings.NewReader(usersEnvelope)), userCodec())
	if err != nil {
		t.Fatalf("DecodeDataSet failed: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len() = %d", ds.Len())
	}
	if !reflect.DeepEqual(ds.Rows(), testUsers()) {
		t.Errorf("rows = %#v", ds.Rows())
	}
	n := 0
	for i, u := range ds.All() {
		if u.ID != int32(i+1) {
			t.Errorf("row %d has id %d", i, u.ID)
		}
		n++
	}
	if n != 2 {
		t.Errorf("All yielded %d rows", n)
	}
}

func TestDecodeDataSetQueryResults(t *testing.T) {
	// A full query results document: extra members, data before columns,
	// and a header that only carries type strings.
	in := `{
		"id": "20240101_000000_00000_abcde",
		"data": [[3, ["x"]]],
		"stats": {"state": "FINISHED", "nodes": 1, "rootStage": {"subStages": []}},
		"columns": [{"name": "id", "type": "integer"}, {"name": "tags", "type": "array(varchar)"}],
		"warnings": []
	}`
	ds, err := DecodeDataSet(wire.NewJSONReader(strings.NewReader(in)), userCodec())
	if err != nil {
		t.Fatalf("DecodeDataSet failed: %v", err)
	}
	want := []user{{ID: 3, Tags: []string{"x"}}}
	if !reflect.DeepEqual(ds.Rows(), want) {
		t.Errorf("rows = %#v", ds.Rows())
	}
}

func TestDecodeDataSetWithoutData(t *testing.T) {
	in := `{"columns":[{"name":"id","type":"integer"},{"name":"tags","type":"array(varchar)"}]}`
	ds, err := DecodeDataSet(wire.NewJSONReader(strings.NewReader(in)), userCodec())
	if err != nil {
		t.Fatalf("DecodeDataSet failed: %v", err)
	}
	if ds.Len() != 0 || ds.Rows() == nil {
		t.Errorf("expected empty non-nil rows, got %#v", ds.Rows())
	}
}

func TestDecodeDataSetHeaderMismatch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{
			name: "column type",
			in:   `{"columns":[{"name":"id","type":"varchar"},{"name":"tags","type":"array(varchar)"}],"data":[]}`,
			want: ErrInvalidShape,
		},
		{
			name: "column count",
			in:   `{"columns":[{"name":"id","type":"integer"}],"data":[[1]]}`,
			want: ErrInvalidShape,
		},
		{
			name: "unparsable type",
			in:   `{"columns":[{"name":"id","type":"decimal(10,2)"}],"data":[]}`,
			want: ErrMalformedWireValue,
		},
		{
			name: "bad cell",
			in:   `{"columns":[{"name":"id","type":"integer"},{"name":"tags","type":"array(varchar)"}],"data":[[1,[]],["2",[]]]}`,
			want: ErrMalformedWireValue,
		},
		{
			name: "data not an array",
			in:   `{"data":{}}`,
			want: ErrMalformedWireValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDataSet(wire.NewJSONReader(strings.NewReader(tt.in)), userCodec())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeDataSetErrorPath(t *testing.T) {
	in := `{"data":[[1,["a"]],[2,["b",3]]]}`
	_, err := DecodeDataSet(wire.NewJSONReader(strings.NewReader(in)), userCodec())
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Path != ".data[1].tags[1]" {
		t.Errorf("Path = %q", e.Path)
	}
	if !strings.Contains(err.Error(), "at $.data[1].tags[1]") {
		t.Errorf("message %q lacks path", err.Error())
	}
}

func TestDataSetMsgpackRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDataSet(userCodec(), testUsers()).Encode(wire.NewMsgpackWriter(&buf)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	ds, err := DecodeDataSet(wire.NewMsgpackReader(&buf), userCodec())
	if err != nil {
		t.Fatalf("DecodeDataSet failed: %v", err)
	}
	if !reflect.DeepEqual(ds.Rows(), testUsers()) {
		t.Errorf("rows = %#v", ds.Rows())
	}
}

func TestRowTypeFromHeader(t *testing.T) {
	cols := []Column{
		{Name: "id", Type: "integer"},
		{Name: "m", TypeSignature: types.Signature(types.MapOf(types.Varchar(), types.Integer()))},
	}
	got, err := RowType(cols)
	if err != nil {
		t.Fatalf("RowType failed: %v", err)
	}
	want := types.RowOf(
		types.Field{Name: "id", Type: types.Integer()},
		types.Field{Name: "m", Type: types.MapOf(types.Varchar(), types.Integer())},
	)
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}
