// Package logger provides the leveled, structured logger shared by both
// command-line tools. It wraps hclog behind a small interface so packages can
// log without depending on a concrete backend, and carries the logger through
// context.Context so one-shot runs need no globals.
//
// Logs always go to stderr: rdm2guac prints its JSON result on stdout, and the
// two streams must never interleave.
package logger

import (
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// nullLogger discards everything; returned when no logger is in the context.
var nullLogger Logger = &instance{log: hclog.NewNullLogger()}

// Level is the minimum severity a Logger emits.
type Level int

const (
	ERROR Level = iota
	WARN
	INFO
	DEBUG
	TRACE
)

// String returns the canonical upper-case name of the level.
func (l Level) String() string {
	switch l {
	case ERROR:
		return "ERROR"
	case WARN:
		return "WARN"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	case TRACE:
		return "TRACE"
	default:
		return "INFO"
	}
}

// LevelFromString parses a level name case-insensitively. Unknown names map
// to INFO.
func LevelFromString(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// AllLevels lists every level name from most to least verbose.
func AllLevels() []string {
	return []string{TRACE.String(), DEBUG.String(), INFO.String(), WARN.String(), ERROR.String()}
}

func (l Level) hclogLevel() hclog.Level {
	switch l {
	case TRACE:
		return hclog.Trace
	case DEBUG:
		return hclog.Debug
	case WARN:
		return hclog.Warn
	case ERROR:
		return hclog.Error
	default:
		return hclog.Info
	}
}

// Logger is the logging surface used across the module.
type Logger interface {
	// WithName returns a child logger whose messages carry the given name.
	WithName(name string) Logger

	// SetLevel updates the minimum emitted level.
	SetLevel(level Level)

	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var _ Logger = &instance{}

type instance struct {
	log hclog.Logger
}

// Options tunes NewLogger.
type Options struct {
	// JSON selects hclog's JSON line format instead of the human format.
	JSON bool
	// Level is the initial level; the zero value is ERROR, so callers
	// normally pass INFO.
	Level Level
}

// NewLogger creates a logger writing to w.
func NewLogger(w io.Writer, opts Options) Logger {
	return &instance{
		log: hclog.New(&hclog.LoggerOptions{
			JSONFormat: opts.JSON,
			Output:     w,
			TimeFn:     time.Now,
			Level:      opts.Level.hclogLevel(),
		}),
	}
}

func (i *instance) WithName(name string) Logger {
	return &instance{log: i.log.Named(name)}
}

func (i *instance) SetLevel(level Level) {
	i.log.SetLevel(level.hclogLevel())
}

func (i *instance) Trace(msg string, args ...any) { i.log.Trace(msg, args...) }
func (i *instance) Debug(msg string, args ...any) { i.log.Debug(msg, args...) }
func (i *instance) Info(msg string, args ...any)  { i.log.Info(msg, args...) }
func (i *instance) Warn(msg string, args ...any)  { i.log.Warn(msg, args...) }
func (i *instance) Error(msg string, args ...any) { i.log.Error(msg, args...) }
