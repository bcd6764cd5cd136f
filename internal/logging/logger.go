// Package logging provides structured logging for dfslink.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mode selects where human-readable log output goes.
type Mode string

const (
	// ModeCLI writes to stdout for interactive use.
	ModeCLI Mode = "cli"
	// ModeTool writes to stderr so piped command output stays clean.
	ModeTool Mode = "tool"
)

// Logger wraps zerolog with mode-specific output selection.
type Logger struct {
	zlog   zerolog.Logger
	mode   Mode
	output io.Writer
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
}

// NewLogger creates a logger for the given mode.
func NewLogger(mode Mode) *Logger {
	target := os.Stderr
	if mode == ModeCLI {
		target = os.Stdout
	}
	output := consoleWriter(target)
	return &Logger{
		zlog:   zerolog.New(output).With().Timestamp().Logger(),
		mode:   mode,
		output: output,
	}
}

// NewDefaultCLILogger creates the logger used by interactive commands.
func NewDefaultCLILogger() *Logger {
	return NewLogger(ModeCLI)
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// With creates a child logger context.
func (l *Logger) With() zerolog.Context { return l.zlog.With() }

// SetOutput changes the output writer, preserving formatting.
// Used to route logs above active progress bars.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.zlog = zerolog.New(consoleWriter(w)).With().Timestamp().Logger()
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer { return l.output }

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(consoleWriter(os.Stderr))
}
