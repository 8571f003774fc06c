// Package serialize compresses encoded result segments.
package serialize

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrTooLarge indicates decompressed data exceeds the configured limit.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

// Compressor handles ZStandard compression of segments.
// Create once and reuse to eliminate allocations.
type Compressor struct {
	encoder *zstd.Encoder
}

// NewCompressor creates a reusable ZStandard compressor.
// Uses SpeedDefault (level 3) for balanced compression ratio and speed.
// Caller must call Close() when done to release resources.
func NewCompressor() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
	}, nil
}

// Compress compresses data using ZStandard.
// Safe for concurrent use from multiple goroutines.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	// JSON rows compress well; start at half the input size
	dst := make([]byte, 0, len(data)/2)

	// EncodeAll is goroutine-safe
	return c.encoder.EncodeAll(data, dst), nil
}

// Close releases compressor resources.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}

// Decompressor handles ZStandard decompression.
// Create once and reuse to eliminate allocations.
type Decompressor struct {
	decoder *zstd.Decoder
	maxSize int
}

// NewDecompressor creates a reusable ZStandard decompressor.
// A positive maxSize bounds the decompressed size; the decoder stops once a
// frame declares or produces more and Decompress fails with ErrTooLarge.
// Caller must call Close() when done to release resources.
func NewDecompressor(maxSize int) (*Decompressor, error) {
	var opts []zstd.DOption
	if maxSize > 0 {
		// Frames never use a window below MinWindowSize, so smaller limits
		// are enforced on the result.
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(max(maxSize, zstd.MinWindowSize))))
	}
	decoder, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Decompressor{
		decoder: decoder,
		maxSize: maxSize,
	}, nil
}

// Decompress decompresses ZStandard data.
// Safe for concurrent use from multiple goroutines.
func (d *Decompressor) Decompress(compressed []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	// DecodeAll is goroutine-safe
	decompressed, err := d.decoder.DecodeAll(compressed, nil)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if d.maxSize > 0 && len(decompressed) > d.maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(decompressed), d.maxSize)
	}

	return decompressed, nil
}

// Close releases decompressor resources.
func (d *Decompressor) Close() {
	if d.decoder != nil {
		d.decoder.Close()
	}
}

// CompressLZ4 compresses data as an LZ4 frame.
func CompressLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress lz4: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress lz4: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressLZ4 decompresses an LZ4 frame. A positive maxSize stops reading
// one byte past the limit and fails with ErrTooLarge.
func DecompressLZ4(compressed []byte, maxSize int) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	var r io.Reader = lz4.NewReader(bytes.NewReader(compressed))
	if maxSize > 0 {
		r = io.LimitReader(r, int64(maxSize)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress lz4: %w", err)
	}
	if maxSize > 0 && len(data) > maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxSize)
	}
	return data, nil
}
