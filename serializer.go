package presto

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/presto-go/internal/recovery"
	"github.com/hugr-lab/presto-go/internal/serialize"
)

// Serializer encodes tables to segments and back in one Encoding.
// It is safe for concurrent use.
type Serializer struct {
	config       Config
	logger       *slog.Logger
	compressor   *serialize.Compressor
	decompressor *serialize.Decompressor
}

// NewSerializer creates a Serializer.
// Returns an error wrapping ErrInvalidConfig if config is invalid.
// Caller must call Close() when done to release compression resources.
//
// Example:
//
//	s, err := presto.NewSerializer(presto.Config{Encoding: presto.EncodingJSONZstd})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	segment, err := s.Marshal(presto.NewDataSet(userCodec, users))
func NewSerializer(config Config) (*Serializer, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	config = config.withDefaults()

	s := &Serializer{config: config, logger: config.Logger}
	if config.Encoding.Compression() == "zstd" {
		var err error
		if s.compressor, err = serialize.NewCompressor(); err != nil {
			return nil, err
		}
		if s.decompressor, err = serialize.NewDecompressor(config.MaxSegmentSize); err != nil {
			s.compressor.Close()
			return nil, err
		}
	}

	s.logger.Debug("Serializer created",
		"encoding", config.Encoding,
		"recover_panics", config.RecoverPanics,
		"max_segment_size", config.MaxSegmentSize,
	)
	return s, nil
}

// Encoding returns the segment encoding.
func (s *Serializer) Encoding() Encoding { return s.config.Encoding }

// Marshal encodes t as one segment.
func (s *Serializer) Marshal(t Table) ([]byte, error) {
	if !s.config.RecoverPanics {
		return s.marshal(t)
	}
	return recovery.RecoverToValue(s.logger, "Marshal", func() ([]byte, error) {
		return s.marshal(t)
	})
}

func (s *Serializer) marshal(t Table) ([]byte, error) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := t.Encode(s.config.Encoding.NewWriter(bw)); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	if err := s.checkSize(buf.Len()); err != nil {
		return nil, err
	}

	data, err := s.compress(buf.Bytes())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Segment encoded",
		"encoding", s.config.Encoding,
		"rows", t.Len(),
		"size", buf.Len(),
		"compressed_size", len(data),
	)
	return data, nil
}

// Unmarshal decodes a segment produced by Marshal into t.
func (s *Serializer) Unmarshal(data []byte, t Table) error {
	if !s.config.RecoverPanics {
		return s.unmarshal(data, t)
	}
	return recovery.RecoverToError(s.logger, "Unmarshal", func() error {
		return s.unmarshal(data, t)
	})
}

func (s *Serializer) unmarshal(data []byte, t Table) error {
	raw, err := s.decompress(data)
	if errors.Is(err, serialize.ErrTooLarge) {
		return fmt.Errorf("%w: %v", ErrSegmentTooLarge, err)
	}
	if err != nil {
		return decodeError(fmt.Errorf("%w: %v", ErrMalformedWireValue, err))
	}
	if err := s.checkSize(len(raw)); err != nil {
		return err
	}
	if err := t.Decode(s.config.Encoding.NewReader(bytes.NewReader(raw))); err != nil {
		return err
	}

	s.logger.Debug("Segment decoded",
		"encoding", s.config.Encoding,
		"rows", t.Len(),
		"size", len(raw),
		"compressed_size", len(data),
	)
	return nil
}

func (s *Serializer) checkSize(n int) error {
	if s.config.MaxSegmentSize > 0 && n > s.config.MaxSegmentSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrSegmentTooLarge, n, s.config.MaxSegmentSize)
	}
	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.config.Encoding.Compression() {
	case "zstd":
		return s.compressor.Compress(data)
	case "lz4":
		return serialize.CompressLZ4(data)
	}
	return data, nil
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.config.Encoding.Compression() {
	case "zstd":
		return s.decompressor.Decompress(data)
	case "lz4":
		return serialize.DecompressLZ4(data, s.config.MaxSegmentSize)
	}
	return data, nil
}

// Close releases compression resources.
func (s *Serializer) Close() error {
	if s.decompressor != nil {
		s.decompressor.Close()
	}
	if s.compressor != nil {
		return s.compressor.Close()
	}
	return nil
}
