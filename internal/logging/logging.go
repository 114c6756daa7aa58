// Package logging configures the zerolog logger shared across ashare.
//
// The logger is constructed once at process start and handed to the
// components that need it; nothing in this package keeps global state.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to stderr at the given level.
// An unparseable level falls back to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Nop returns a disabled logger, useful as a default in tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
