package types

import (
	"errors"
	"testing"
)

func TestFullType(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Integer(), "integer"},
		{Varchar(), "varchar"},
		{ArrayOf(Varchar()), "array(varchar)"},
		{MapOf(Varchar(), ArrayOf(Integer())), "map(varchar, array(integer))"},
		{RowOf(Field{Name: "id", Type: Integer()}, Field{Name: "tags", Type: ArrayOf(Varchar())}),
			"row(id integer, tags array(varchar))"},
		{TupleOf(Integer(), Varchar()), "row(integer, varchar)"},
		{RowOf(Field{Name: "first name", Type: Varchar()}), `row("first name" varchar)`},
		{RowOf(Field{Name: `say "hi"`, Type: Varchar()}), `row("say ""hi""" varchar)`},
		{RowOf(), "row()"},
		{Type{}, "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FullType(tt.typ); got != tt.want {
				t.Errorf("FullType() = %q, want %q", got, tt.want)
			}
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	types := []Type{
		Integer(),
		Varchar(),
		ArrayOf(ArrayOf(Integer())),
		MapOf(Integer(), Varchar()),
		MapOf(Varchar(), ArrayOf(Integer())),
		RowOf(Field{Name: "id", Type: Integer()}, Field{Name: "tags", Type: ArrayOf(Varchar())}),
		RowOf(Field{Name: "x", Type: Integer()}, Field{Name: "x", Type: Integer()}),
		RowOf(Field{Name: "", Type: Integer()}, Field{Name: "b", Type: Varchar()}),
		RowOf(Field{Name: "integer", Type: Integer()}),
		TupleOf(Integer(), TupleOf(Varchar(), ArrayOf(Integer()))),
		ArrayOf(RowOf(Field{Name: "k", Type: MapOf(Varchar(), TupleOf(Integer()))})),
		RowOf(),
	}
	for _, typ := range types {
		t.Run(typ.String(), func(t *testing.T) {
			got, err := Parse(FullType(typ))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !got.Equal(typ) {
				t.Errorf("Parse(%q) = %s", FullType(typ), got)
			}
		})
	}
}

func TestEmptyTupleParsesAsRow(t *testing.T) {
	empty := TupleOf()
	if got := FullType(empty); got != "row()" {
		t.Fatalf("FullType() = %q, want row()", got)
	}
	got, err := Parse(FullType(empty))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// Neither form carries field names, so the empty tuple reads back as
	// the empty row.
	if got.Kind() != KindRow || got.NumFields() != 0 {
		t.Errorf("Parse(row()) = %s (kind %s), want empty row", got, got.Kind())
	}
	if got.Equal(empty) {
		t.Errorf("empty row equals empty tuple")
	}

	fromSig, err := FromSignature(Signature(empty))
	if err != nil {
		t.Fatalf("FromSignature failed: %v", err)
	}
	if !fromSig.Equal(RowOf()) {
		t.Errorf("FromSignature() = %s, want empty row", fromSig)
	}
}

func TestParseLenient(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"INTEGER", Integer()},
		{"int", Integer()},
		{"varchar(10)", Varchar()},
		{"ARRAY( VARCHAR )", ArrayOf(Varchar())},
		{"map(varchar,integer)", MapOf(Varchar(), Integer())},
		{"row(a int,b varchar(3))", RowOf(Field{Name: "a", Type: Integer()}, Field{Name: "b", Type: Varchar()})},
		{"row(integer)", TupleOf(Integer())},
		{`row("a b" array(int))`, RowOf(Field{Name: "a b", Type: ArrayOf(Integer())})},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"",
		"bigint",
		"array",
		"array(integer",
		"map(integer)",
		"varchar(x)",
		"row(a integer,)",
		`row("unterminated integer)`,
		"integer integer",
		"array(integer))",
		"row(integer foo)",
		"décimal",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if err == nil {
				t.Fatalf("expected error for %q", in)
			}
			if !errors.Is(err, ErrInvalidTypeString) {
				t.Errorf("expected ErrInvalidTypeString, got %v", err)
			}
		})
	}
}
