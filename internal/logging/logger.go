// Package logging configures the process-wide zerolog logger and exposes it
// to log/slog call sites.
//
// Components log through *slog.Logger with key/value pairs. Init installs a
// zerolog sink behind slog.Default, so the output format and level are
// decided once, at startup:
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	slog.Info("fetched page", "index", 2)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error or disabled.
	Level string

	// Format is json or console.
	Format string

	// Caller adds the file and line of the call site.
	Caller bool

	// Timestamp adds a time field to every record.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	mu  sync.RWMutex
	log zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init configures the global logger and installs it as slog's default.
// It may be called again to reconfigure.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var out io.Writer
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		out = cfg.Output
	case "console":
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	default:
		return fmt.Errorf("unknown log format %q (want json or console)", cfg.Format)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.MessageFieldName = "message"

	logger := zerolog.New(out).Level(level)
	if cfg.Timestamp {
		logger = logger.With().Timestamp().Logger()
	}
	if cfg.Caller {
		logger = logger.With().Caller().Logger()
	}

	mu.Lock()
	log = logger
	mu.Unlock()

	slog.SetDefault(NewSlogLogger())
	return nil
}

// Logger returns the global zerolog logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// ParseLevel converts a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
