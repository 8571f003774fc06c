package wire

import "fmt"

// Copy transcodes the next value of r into w, e.g. JSON into MessagePack.
// Nulls are not representable by Writer and fail with ErrUnsupported.
func Copy(w Writer, r Reader) error {
	tok, err := r.Peek()
	if err != nil {
		return err
	}
	switch tok {
	case TokenInt:
		n, err := r.ReadInt()
		if err != nil {
			return err
		}
		return w.WriteInt(n)
	case TokenString:
		s, err := r.ReadString()
		if err != nil {
			return err
		}
		return w.WriteString(s)
	case TokenArray:
		n, err := r.BeginArray()
		if err != nil {
			return err
		}
		if err := w.BeginArray(n); err != nil {
			return err
		}
		if err := copyAll(w, r); err != nil {
			return err
		}
		if err := r.EndArray(); err != nil {
			return err
		}
		return w.EndArray()
	case TokenMap:
		n, err := r.BeginMap()
		if err != nil {
			return err
		}
		if err := w.BeginMap(n); err != nil {
			return err
		}
		if err := copyAll(w, r); err != nil {
			return err
		}
		if err := r.EndMap(); err != nil {
			return err
		}
		return w.EndMap()
	case TokenNull:
		return fmt.Errorf("%w: null value", ErrUnsupported)
	}
	return Malformed("cannot copy %s token", tok)
}

func copyAll(w Writer, r Reader) error {
	for {
		more, err := r.More()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := Copy(w, r); err != nil {
			return err
		}
	}
}

// ReadValue decodes the next value of r into generic Go values, see ValueWriter.
func ReadValue(r Reader) (any, error) {
	vw := NewValueWriter()
	if err := Copy(vw, r); err != nil {
		return nil, err
	}
	return vw.Value()
}

// WriteValue encodes a generic Go value, see ValueReader.
func WriteValue(w Writer, v any) error {
	return Copy(w, NewValueReader(v))
}
