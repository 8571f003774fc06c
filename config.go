package presto

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Config contains configuration for a Serializer.
type Config struct {
	// Encoding selects the segment encoding.
	// OPTIONAL: Uses EncodingJSON if empty.
	// Valid values: the members of Encodings.
	Encoding Encoding

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil and LogLevel is nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, the logger is used as is.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// RecoverPanics converts panics raised by codecs during Marshal and
	// Unmarshal into errors matching ErrPanic.
	// OPTIONAL: If false, panics propagate to the caller.
	RecoverPanics bool

	// MaxSegmentSize limits the size of an uncompressed segment in bytes.
	// Compressed segments are decompressed no further than the limit.
	// OPTIONAL: If 0, segments are unlimited.
	MaxSegmentSize int
}

// ErrSegmentTooLarge indicates a segment exceeds Config.MaxSegmentSize.
var ErrSegmentTooLarge = errors.New("segment too large")

func validateConfig(config Config) error {
	if config.Encoding != "" && !slices.Contains(Encodings, config.Encoding) {
		return fmt.Errorf("unknown encoding %q", config.Encoding)
	}
	if config.MaxSegmentSize < 0 {
		return fmt.Errorf("MaxSegmentSize must not be negative, got %d", config.MaxSegmentSize)
	}
	return nil
}

// withDefaults fills the optional fields of a validated config.
func (config Config) withDefaults() Config {
	if config.Encoding == "" {
		config.Encoding = EncodingJSON
	}
	if config.Logger == nil {
		if config.LogLevel != nil {
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: *config.LogLevel,
			})
			config.Logger = slog.New(handler)
		} else {
			config.Logger = slog.Default()
		}
	}
	return config
}
