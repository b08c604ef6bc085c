package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/growlogin/growlogin/internal/config"
)

// New builds the service logger. format "console" writes human-readable
// lines; anything else writes JSON.
func New(cfg *config.ObservabilityConfig) zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg *config.ObservabilityConfig) zerolog.Logger {
	if cfg.Logging.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(cfg.LogLevel()).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("env", cfg.Environment).
		Logger()
}

// Bootstrap is used before configuration is available.
func Bootstrap() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
