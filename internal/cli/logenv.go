package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Process streams. Tests swap them for buffers.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// parseLogLevel maps a level name to zerolog, defaulting to warn so the
// report on stdout is the only output of a normal run.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning", "":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// newLogger returns a human-readable logger on stderr.
func newLogger(level string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(w).Level(parseLogLevel(level)).With().Timestamp().Logger()
}

// SetOutput redirects command output and returns a func restoring the
// previous writers.
func SetOutput(out, errOut io.Writer) (restore func()) {
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	return func() { stdout, stderr = prevOut, prevErr }
}
