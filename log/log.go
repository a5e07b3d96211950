// Package log is a small leveled-logging façade used across the packfile
// toolkit, shaped after the helper the PE parser keeps next to its own
// decoder (a Logger interface, a filtering wrapper, and a Helper with
// Printf-style level methods) so every subsystem logs the same way instead
// of reaching for fmt.Println or the stdlib log package directly.
package log

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every subsystem writes through.
type Logger interface {
	Log(level Level, msg string)
}

// stdLogger writes to an io.Writer via the stdlib logger.
type stdLogger struct {
	mu  sync.Mutex
	std *log.Logger
}

// NewStdLogger builds a Logger that writes timestamped lines to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{std: log.New(w, "", log.LstdFlags)}
}

func (s *stdLogger) Log(level Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.std.Printf("[%s] %s", level, msg)
}

// Option configures a filtering wrapper.
type Option func(*filter)

// FilterLevel drops any log line below the given level.
func FilterLevel(level Level) Option {
	return func(f *filter) { f.level = level }
}

type filter struct {
	next  Logger
	level Level
}

// NewFilter wraps a Logger, suppressing messages below the configured level.
func NewFilter(next Logger, opts ...Option) Logger {
	f := &filter{next: next, level: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, msg string) {
	if level < f.level {
		return
	}
	f.next.Log(level, msg)
}

// Helper adds Printf-style convenience methods on top of a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger with the Debugf/Infof/Warnf/Errorf family.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) Debugf(format string, args ...interface{}) { h.logf(LevelDebug, format, args...) }
func (h *Helper) Infof(format string, args ...interface{})  { h.logf(LevelInfo, format, args...) }
func (h *Helper) Warnf(format string, args ...interface{})  { h.logf(LevelWarn, format, args...) }
func (h *Helper) Errorf(format string, args ...interface{}) { h.logf(LevelError, format, args...) }

func (h *Helper) logf(level Level, format string, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Log(level, fmt.Sprintf(format, args...))
}

// Nop returns a Helper that discards everything, for callers that don't
// want to wire a real sink (tests, one-off tools).
func Nop() *Helper {
	return NewHelper(nopLogger{})
}

type nopLogger struct{}

func (nopLogger) Log(Level, string) {}
