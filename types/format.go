package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTypeString is returned by Parse for malformed or unsupported type strings.
var ErrInvalidTypeString = errors.New("invalid type string")

// FullType returns the canonical type string of t, e.g. "array(varchar)",
// "map(varchar, integer)" or "row(id integer, tags array(varchar))".
// Tuples render as anonymous rows: "row(integer, varchar)".
func FullType(t Type) string {
	var b strings.Builder
	writeType(&b, t)
	return b.String()
}

func writeType(b *strings.Builder, t Type) {
	switch t.kind {
	case KindInteger:
		b.WriteString("integer")
	case KindVarchar:
		b.WriteString("varchar")
	case KindArray:
		b.WriteString("array(")
		writeType(b, t.elems[0])
		b.WriteByte(')')
	case KindMap:
		b.WriteString("map(")
		writeType(b, t.elems[0])
		b.WriteString(", ")
		writeType(b, t.elems[1])
		b.WriteByte(')')
	case KindTuple:
		b.WriteString("row(")
		for i, e := range t.elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeType(b, e)
		}
		b.WriteByte(')')
	case KindRow:
		b.WriteString("row(")
		for i, f := range t.fields {
			if i > 0 {
				b.WriteString(", ")
			}
			writeFieldName(b, f.Name)
			b.WriteByte(' ')
			writeType(b, f.Type)
		}
		b.WriteByte(')')
	default:
		b.WriteString("invalid")
	}
}

// writeFieldName writes plain identifiers as is and double-quotes anything else.
func writeFieldName(b *strings.Builder, name string) {
	if isIdentifier(name) {
		b.WriteString(name)
		return
	}
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(name, `"`, `""`))
	b.WriteByte('"')
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Parse parses a canonical type string produced by FullType.
//
// Type names are case-insensitive, "int" is accepted for integer and bounded
// "varchar(n)" for varchar. Row fields may be named (plain or double-quoted
// identifiers) or anonymous; a row whose fields are all anonymous parses as a
// tuple. The empty "row()" parses as an empty row.
func Parse(s string) (Type, error) {
	p := &typeParser{src: s}
	p.next()
	t, err := p.parseType()
	if err != nil {
		return Type{}, fmt.Errorf("%w %q: %v", ErrInvalidTypeString, s, err)
	}
	if p.tok.kind != tokEOF {
		return Type{}, fmt.Errorf("%w %q: unexpected %s after type", ErrInvalidTypeString, s, p.tok)
	}
	return t, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokQuoted
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokError
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokError:
		return t.text
	}
	return fmt.Sprintf("%q at %d", t.text, t.pos)
}

type typeParser struct {
	src  string
	pos  int
	tok  token
	peek *token
}

func (p *typeParser) next() {
	if p.peek != nil {
		p.tok = *p.peek
		p.peek = nil
		return
	}
	p.tok = p.scan()
}

func (p *typeParser) lookahead() token {
	if p.peek == nil {
		t := p.scan()
		p.peek = &t
	}
	return *p.peek
}

func (p *typeParser) scan() token {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return token{kind: tokEOF, pos: p.pos}
	}
	start := p.pos
	c := p.src[p.pos]
	switch {
	case c == '(':
		p.pos++
		return token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		return token{kind: tokRParen, text: ")", pos: start}
	case c == ',':
		p.pos++
		return token{kind: tokComma, text: ",", pos: start}
	case c == '"':
		var b strings.Builder
		p.pos++
		for p.pos < len(p.src) {
			if p.src[p.pos] == '"' {
				if p.pos+1 < len(p.src) && p.src[p.pos+1] == '"' {
					b.WriteByte('"')
					p.pos += 2
					continue
				}
				p.pos++
				return token{kind: tokQuoted, text: b.String(), pos: start}
			}
			b.WriteByte(p.src[p.pos])
			p.pos++
		}
		return token{kind: tokError, text: fmt.Sprintf("unterminated quoted name at %d", start), pos: start}
	case c >= '0' && c <= '9':
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		return token{kind: tokNumber, text: p.src[start:p.pos], pos: start}
	case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
				p.pos++
				continue
			}
			break
		}
		return token{kind: tokIdent, text: p.src[start:p.pos], pos: start}
	}
	p.pos++
	return token{kind: tokError, text: fmt.Sprintf("unexpected character %q at %d", c, start), pos: start}
}

func (p *typeParser) expect(k tokKind, what string) error {
	if p.tok.kind != k {
		return fmt.Errorf("expected %s, got %s", what, p.tok)
	}
	p.next()
	return nil
}

func (p *typeParser) parseType() (Type, error) {
	if p.tok.kind != tokIdent {
		return Type{}, fmt.Errorf("expected type name, got %s", p.tok)
	}
	name := strings.ToLower(p.tok.text)
	p.next()

	switch name {
	case "integer", "int":
		return Integer(), nil
	case "varchar":
		if p.tok.kind == tokLParen {
			p.next()
			if p.tok.kind != tokNumber {
				return Type{}, fmt.Errorf("expected varchar length, got %s", p.tok)
			}
			if _, err := strconv.ParseInt(p.tok.text, 10, 64); err != nil {
				return Type{}, fmt.Errorf("invalid varchar length %q", p.tok.text)
			}
			p.next()
			if err := p.expect(tokRParen, "')'"); err != nil {
				return Type{}, err
			}
		}
		return Varchar(), nil
	case "array":
		if err := p.expect(tokLParen, "'('"); err != nil {
			return Type{}, err
		}
		elem, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return Type{}, err
		}
		return ArrayOf(elem), nil
	case "map":
		if err := p.expect(tokLParen, "'('"); err != nil {
			return Type{}, err
		}
		key, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(tokComma, "','"); err != nil {
			return Type{}, err
		}
		value, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return Type{}, err
		}
		return MapOf(key, value), nil
	case "row":
		return p.parseRow()
	}
	return Type{}, fmt.Errorf("unsupported type %q", name)
}

func (p *typeParser) parseRow() (Type, error) {
	if err := p.expect(tokLParen, "'('"); err != nil {
		return Type{}, err
	}
	var fields []Field
	named := false
	if p.tok.kind == tokRParen {
		p.next()
		return RowOf(), nil
	}
	for {
		f, isNamed, err := p.parseField()
		if err != nil {
			return Type{}, err
		}
		named = named || isNamed
		fields = append(fields, f)
		if p.tok.kind == tokComma {
			p.next()
			continue
		}
		if err := p.expect(tokRParen, "',' or ')'"); err != nil {
			return Type{}, err
		}
		break
	}
	if !named {
		elems := make([]Type, len(fields))
		for i, f := range fields {
			elems[i] = f.Type
		}
		return TupleOf(elems...), nil
	}
	return RowOf(fields...), nil
}

// parseField parses "name type", "\"quoted name\" type" or an anonymous "type".
// An identifier is a field name when another name follows it.
func (p *typeParser) parseField() (Field, bool, error) {
	switch p.tok.kind {
	case tokQuoted:
		name := p.tok.text
		p.next()
		t, err := p.parseType()
		return Field{Name: name, Type: t}, true, err
	case tokIdent:
		if next := p.lookahead(); next.kind == tokIdent || next.kind == tokQuoted {
			name := p.tok.text
			p.next()
			t, err := p.parseType()
			return Field{Name: name, Type: t}, true, err
		}
	}
	t, err := p.parseType()
	return Field{Type: t}, false, err
}
