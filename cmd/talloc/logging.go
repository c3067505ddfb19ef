package main

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// verbosityMessage is printed at the start of every apps run.
func verbosityMessage(verbosity int) string {
	switch {
	case verbosity <= 0:
		return "No verbose info"
	case verbosity == 1:
		return "Some verbose info"
	case verbosity == 2:
		return "Tons of verbose info"
	default:
		return "Don't be ridiculous"
	}
}

func logLevel(verbosity int, debug bool) zerolog.Level {
	switch {
	case debug || verbosity >= 2:
		return zerolog.DebugLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

// newLogger writes human readable diagnostics to w. Every line carries the
// run ID so that concurrent request logs can be told apart from other runs.
func newLogger(w io.Writer, verbosity int, debug bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339Nano, NoColor: true}).
		Level(logLevel(verbosity, debug)).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
}
