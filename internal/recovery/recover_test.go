package recovery

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecoverToError(t *testing.T) {
	err := RecoverToError(discardLogger(), "Decode", func() error {
		panic("boom")
	})
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %T", err)
	}
	if pe.Operation != "Decode" || pe.Value != "boom" || len(pe.Stack) == 0 {
		t.Errorf("unexpected panic error: %+v", pe)
	}
	if st, _ := status.FromError(err); st.Code() != codes.Internal {
		t.Errorf("status code = %s, want Internal", st.Code())
	}
}

func TestRecoverToErrorPassesThrough(t *testing.T) {
	want := errors.New("plain failure")
	if err := RecoverToError(discardLogger(), "Decode", func() error { return want }); err != want {
		t.Errorf("got %v, want %v", err, want)
	}
}

func TestRecoverToValue(t *testing.T) {
	got, err := RecoverToValue(discardLogger(), "Encode", func() ([]byte, error) {
		var m map[string]int
		m["x"] = 1
		return []byte("unreachable"), nil
	})
	if got != nil {
		t.Errorf("expected zero value, got %q", got)
	}
	if !errors.Is(err, ErrPanic) {
		t.Errorf("expected ErrPanic, got %v", err)
	}

	got, err = RecoverToValue(discardLogger(), "Encode", func() ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || string(got) != "ok" {
		t.Errorf("got %q, %v", got, err)
	}
}
