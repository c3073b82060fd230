package app

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger writes human-readable lines in development and JSON otherwise.
func NewLogger(production bool, level string) zerolog.Logger {
	return newLogger(os.Stdout, production, level)
}

func newLogger(w io.Writer, production bool, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
		if !production {
			lvl = zerolog.DebugLevel
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if !production {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "rfid-tool-kiosk").Logger()
}
