package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Diagnostic logging is separate
// from the telemetry event log: diagnostics go to stderr for the operator,
// event lines go to the serial and persistent sinks.
func Setup(level, format string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "info":
		lvl = zerolog.InfoLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}

	if format == "console" {
		out := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		log.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	}

	return log.Logger
}

// Component returns a logger tagged with the subsystem name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
