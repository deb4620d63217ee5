// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = newConsoleLogger(os.Stderr)

// Logf is the package-level diagnostic logger. It writes info-level
// messages through the zerolog logger by default and may be replaced by
// SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogf

func defaultLogf(format string, v ...interface{}) {
	logger.Info().Msgf(format, v...)
}

func newConsoleLogger(out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Logger returns the structured logger used by commands.
func Logger() *zerolog.Logger {
	return &logger
}

// SetOutput redirects the structured logger and restores the default Logf.
// Passing json=true writes newline-delimited JSON instead of console text.
func SetOutput(out io.Writer, json bool) {
	if json {
		logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		logger = newConsoleLogger(out)
	}
	Logf = defaultLogf
}

// SetLevel sets the global log level from its name ("debug", "info", ...).
func SetLevel(name string) error {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
