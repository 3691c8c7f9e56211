// Package logging builds the process-wide zerolog instance. Every component
// derives its own sub-logger from the one returned here.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"camellia/internal/config"

	"github.com/rs/zerolog"
)

// New constructs the root logger from config. The returned closer is non-nil
// only for file output and must be closed on shutdown.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	out, closer, err := sink(cfg)
	if err != nil {
		return nil, nil, err
	}

	if normalize(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(out).
		Level(levelOrInfo(cfg.Level)).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &logger, closer, nil
}

// sink picks the output writer. stdout is the default; file output appends.
func sink(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch normalize(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	}
	return os.Stdout, nil, nil
}

// levelOrInfo parses the configured level, falling back to info on anything
// unknown rather than failing startup.
func levelOrInfo(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(normalize(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
