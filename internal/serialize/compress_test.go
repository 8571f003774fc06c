package serialize

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestZstdRoundTrip(t *testing.T) {
	c, err := NewCompressor()
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer c.Close()
	d, err := NewDecompressor(0)
	if err != nil {
		t.Fatalf("NewDecompressor failed: %v", err)
	}
	defer d.Close()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"small", []byte(`[[1,["a","b"]]]`)},
		{"repetitive", []byte(strings.Repeat(`[1,"abc"],`, 1000))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := c.Compress(tt.data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			got, err := d.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(tt.data))
			}
		})
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	data := []byte(strings.Repeat(`{"x":[1,2]},`, 500))
	compressed, err := CompressLZ4(data)
	if err != nil {
		t.Fatalf("CompressLZ4 failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("expected compression, got %d bytes from %d", len(compressed), len(data))
	}
	got, err := DecompressLZ4(compressed, 0)
	if err != nil {
		t.Fatalf("DecompressLZ4 failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch")
	}
}

func TestDecompressCorrupt(t *testing.T) {
	d, err := NewDecompressor(0)
	if err != nil {
		t.Fatalf("NewDecompressor failed: %v", err)
	}
	defer d.Close()

	if _, err := d.Decompress([]byte("not zstd")); err == nil {
		t.Errorf("expected zstd error")
	}
	if _, err := DecompressLZ4([]byte("not lz4"), 0); err == nil {
		t.Errorf("expected lz4 error")
	}
}

func TestDecompressSizeLimit(t *testing.T) {
	c, err := NewCompressor()
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer c.Close()

	data := []byte(strings.Repeat(`[1,"abc"],`, 10000))
	zstdData, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	lz4Data, err := CompressLZ4(data)
	if err != nil {
		t.Fatalf("CompressLZ4 failed: %v", err)
	}

	tests := []struct {
		name    string
		maxSize int
		wantErr bool
	}{
		{"unlimited", 0, false},
		{"exact", len(data), false},
		{"one byte short", len(data) - 1, true},
		{"below window", 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDecompressor(tt.maxSize)
			if err != nil {
				t.Fatalf("NewDecompressor failed: %v", err)
			}
			defer d.Close()

			got, err := d.Decompress(zstdData)
			if tt.wantErr {
				if !errors.Is(err, ErrTooLarge) {
					t.Errorf("zstd: expected ErrTooLarge, got %v", err)
				}
			} else if err != nil || !bytes.Equal(got, data) {
				t.Errorf("zstd: got %d bytes, err %v", len(got), err)
			}

			got, err = DecompressLZ4(lz4Data, tt.maxSize)
			if tt.wantErr {
				if !errors.Is(err, ErrTooLarge) {
					t.Errorf("lz4: expected ErrTooLarge, got %v", err)
				}
			} else if err != nil || !bytes.Equal(got, data) {
				t.Errorf("lz4: got %d bytes, err %v", len(got), err)
			}
		})
	}
}
