package wire

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// writeSample writes {"id": 7, "tags": ["a", "b"], "m": {1: "x"}} with the
// given size hints. A negative hint leaves the frame unsized.
func writeSample(w Writer, sized bool) error {
	hint := func(n int) int {
		if sized {
			return n
		}
		return -1
	}
	steps := []func() error{
		func() error { return w.BeginMap(hint(3)) },
		func() error { return w.WriteString("id") },
		func() error { return w.WriteInt(7) },
		func() error { return w.WriteString("tags") },
		func() error { return w.BeginArray(hint(2)) },
		func() error { return w.WriteString("a") },
		func() error { return w.WriteString("b") },
		func() error { return w.EndArray() },
		func() error { return w.WriteString("m") },
		func() error { return w.BeginMap(hint(1)) },
		func() error { return w.WriteInt(1) },
		func() error { return w.WriteString("x") },
		func() error { return w.EndMap() },
		func() error { return w.EndMap() },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func TestJSONWriter(t *testing.T) {
	want := `{"id":7,"tags":["a","b"],"m":{"1":"x"}}`
	for _, sized := range []bool{true, false} {
		var buf bytes.Buffer
		if err := writeSample(NewJSONWriter(&buf), sized); err != nil {
			t.Fatalf("sized=%t: write failed: %v", sized, err)
		}
		if buf.String() != want {
			t.Errorf("sized=%t: got %s, want %s", sized, buf.String(), want)
		}
	}
}

func TestJSONWriterEscapesStrings(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	if err := w.WriteString("say \"hi\"\n"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	if got := buf.String(); got != `"say \"hi\"\n"` {
		t.Errorf("got %s", got)
	}
}

func TestJSONWriterFraming(t *testing.T) {
	tests := []struct {
		name  string
		write func(w Writer) error
		want  error
	}{
		{
			name: "size hint too large",
			write: func(w Writer) error {
				if err := w.BeginArray(2); err != nil {
					return err
				}
				if err := w.WriteInt(1); err != nil {
					return err
				}
				return w.EndArray()
			},
			want: ErrFraming,
		},
		{
			name: "key without value",
			write: func(w Writer) error {
				if err := w.BeginMap(-1); err != nil {
					return err
				}
				if err := w.WriteString("k"); err != nil {
					return err
				}
				return w.EndMap()
			},
			want: ErrFraming,
		},
		{
			name: "mismatched end",
			write: func(w Writer) error {
				if err := w.BeginArray(-1); err != nil {
					return err
				}
				return w.EndMap()
			},
			want: ErrFraming,
		},
		{
			name: "composite key",
			write: func(w Writer) error {
				if err := w.BeginMap(1); err != nil {
					return err
				}
				return w.BeginArray(0)
			},
			want: ErrUnsupported,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := tt.write(NewJSONWriter(&buf))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestJSONReader(t *testing.T) {
	r := NewJSONReader(strings.NewReader(`{"id": 7, "tags": ["a", "b"], "m": {"1": "x"}, "n": null}`))

	if _, err := r.BeginMap(); err != nil {
		t.Fatalf("BeginMap failed: %v", err)
	}
	key, err := r.ReadString()
	if err != nil || key != "id" {
		t.Fatalf("key = %q, %v", key, err)
	}
	if n, err := r.ReadInt(); err != nil || n != 7 {
		t.Fatalf("id = %d, %v", n, err)
	}
	if key, _ = r.ReadString(); key != "tags" {
		t.Fatalf("key = %q", key)
	}
	if tok, _ := r.Peek(); tok != TokenArray {
		t.Fatalf("Peek = %s, want array", tok)
	}
	if _, err := r.BeginArray(); err != nil {
		t.Fatalf("BeginArray failed: %v", err)
	}
	var tags []string
	for {
		more, err := r.More()
		if err != nil {
			t.Fatalf("More failed: %v", err)
		}
		if !more {
			break
		}
		s, err := r.ReadString()
		if err != nil {
			t.Fatalf("ReadString failed: %v", err)
		}
		tags = append(tags, s)
	}
	if err := r.EndArray(); err != nil {
		t.Fatalf("EndArray failed: %v", err)
	}
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %v", tags)
	}

	// Integer keys are read back from their string form.
	if key, _ = r.ReadString(); key != "m" {
		t.Fatalf("key = %q", key)
	}
	if _, err := r.BeginMap(); err != nil {
		t.Fatalf("BeginMap failed: %v", err)
	}
	if k, err := r.ReadInt(); err != nil || k != 1 {
		t.Fatalf("int key = %d, %v", k, err)
	}
	if v, err := r.ReadString(); err != nil || v != "x" {
		t.Fatalf("value = %q, %v", v, err)
	}
	if err := r.EndMap(); err != nil {
		t.Fatalf("EndMap failed: %v", err)
	}

	if key, _ = r.ReadString(); key != "n" {
		t.Fatalf("key = %q", key)
	}
	null, err := IsNull(r)
	if err != nil || !null {
		t.Fatalf("IsNull = %t, %v", null, err)
	}
	if err := r.EndMap(); err != nil {
		t.Fatalf("EndMap failed: %v", err)
	}
}

func TestJSONReaderMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		read func(r *JSONReader) error
	}{
		{
			name: "string for int",
			in:   `"7"`,
			read: func(r *JSONReader) error { _, err := r.ReadInt(); return err },
		},
		{
			name: "fraction",
			in:   `1.5`,
			read: func(r *JSONReader) error { _, err := r.ReadInt(); return err },
		},
		{
			name: "overflow",
			in:   `92233720368547758070`,
			read: func(r *JSONReader) error { _, err := r.ReadInt(); return err },
		},
		{
			name: "int for string",
			in:   `7`,
			read: func(r *JSONReader) error { _, err := r.ReadString(); return err },
		},
		{
			name: "object for array",
			in:   `{}`,
			read: func(r *JSONReader) error { _, err := r.BeginArray(); return err },
		},
		{
			name: "truncated",
			in:   `[1,`,
			read: func(r *JSONReader) error { return Skip(r) },
		},
		{
			name: "empty input",
			in:   ``,
			read: func(r *JSONReader) error { _, err := r.Peek(); return err },
		},
		{name: "missing comma", in: `[1 2]`, read: skipJSON},
		{name: "double comma", in: `[1,,2]`, read: skipJSON},
		{name: "leading comma", in: `[,1]`, read: skipJSON},
		{name: "trailing comma", in: `[1,]`, read: skipJSON},
		{name: "colon in array", in: `[1:2]`, read: skipJSON},
		{name: "missing colon", in: `{"x" [1], "y" []}`, read: skipJSON},
		{name: "comma for colon", in: `{"x",1}`, read: skipJSON},
		{name: "missing comma in object", in: `{"x":1 "y":2}`, read: skipJSON},
		{name: "key without value", in: `{"x"}`, read: skipJSON},
		{name: "number key", in: `{1:2}`, read: skipJSON},
		{name: "array key", in: `{[1]:2}`, read: skipJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(NewJSONReader(strings.NewReader(tt.in)))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestSkipNested(t *testing.T) {
	r := NewJSONReader(strings.NewReader(`[{"a": [1, {"b": null}], "c": "d"}, 2]`))
	if _, err := r.BeginArray(); err != nil {
		t.Fatalf("BeginArray failed: %v", err)
	}
	if err := Skip(r); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if n, err := r.ReadInt(); err != nil || n != 2 {
		t.Fatalf("after skip = %d, %v", n, err)
	}
	if err := r.EndArray(); err != nil {
		t.Fatalf("EndArray failed: %v", err)
	}
}

func TestJSONReaderSeparators(t *testing.T) {
	in := " [ 1 ,\n2\t, { \"a\" : [ ] , \"b\":{}} ] "
	r := NewJSONReader(strings.NewReader(in))
	v, err := ReadValue(r)
	if err != nil {
		t.Fatalf("ReadValue failed: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteValue(NewJSONWriter(&buf), v); err != nil {
		t.Fatalf("WriteValue failed: %v", err)
	}
	if want := `[1,2,{"a":[],"b":{}}]`; buf.String() != want {
		t.Errorf("Expected %s, got %s", want, buf.String())
	}
}

func skipJSON(r *JSONReader) error { return Skip(r) }
