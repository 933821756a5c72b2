// Package logging is the leveled logger used across fishframes. It keeps a
// small printf-style facade (Info, Success, Warn, Error, Debug) and renders
// through zerolog: a console writer on stdout/stderr and, when a log file
// is configured, JSON lines appended to that file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/term"
)

// Canonical structured field names.
const (
	FieldRunID   = "run_id"
	FieldProject = "project"
	FieldVideo   = "video"
	FieldFrame   = "frame"
	FieldPath    = "path"
	FieldOutcome = "outcome"
)

// Logger provides leveled logging with an optional file sink. Child loggers
// created with [Logger.With] share the parent's writers; only the root
// logger owns the file.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// NewLogger configures colors from cfg and builds the console writer,
// optionally opening cfg.LogFile in append mode. Call Close() when done if
// LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	var console zerolog.LevelWriter
	if cfg.LogFormat == config.LogFormatJSON {
		console = levelSplit{out: os.Stdout, err: os.Stderr}
	} else {
		console = levelSplit{
			out: consoleWriter(os.Stdout, !term.Enabled()),
			err: consoleWriter(os.Stderr, !term.Enabled()),
		}
	}

	l := &Logger{}
	var w io.Writer = console
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		w = zerolog.MultiLevelWriter(console, f)
	}
	l.zl = newZerolog(w, cfg.Verbose)
	return l, nil
}

// New returns a Logger writing JSON lines to w. Used by tests and by
// callers that embed fishframes as a library.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{zl: newZerolog(w, verbose)}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func newZerolog(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.DateTime,
	}
}

// levelSplit sends error-level and above to err, everything else to out.
type levelSplit struct {
	out io.Writer
	err io.Writer
}

func (s levelSplit) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s levelSplit) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel {
		return s.err.Write(p)
	}
	return s.out.Write(p)
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// With returns a child logger that adds key=value to every entry.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Success logs a completed step at INFO level, tagged outcome=success.
func (l *Logger) Success(format string, args ...any) {
	l.zl.Info().Str(FieldOutcome, "success").Msgf(format, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs at ERROR level; on the console this goes to stderr.
func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// Debug logs at DEBUG level; dropped unless the logger is verbose.
func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
