package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	mu   sync.RWMutex
	base = newBase(LogLevelInfo, "console", os.Stderr)
)

func newBase(level LogLevel, format string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(string(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Init reconfigures the process logger. format is "json" or "console".
func Init(level LogLevel, format string) {
	InitWriter(level, format, os.Stderr)
}

// InitWriter is Init with an explicit sink, used by tests to capture output.
func InitWriter(level LogLevel, format string, out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	zerolog.TimeFieldFormat = time.RFC3339
	base = newBase(level, format, out)
}

type Log struct {
	zl zerolog.Logger
}

func New() *Log {
	mu.RLock()
	defer mu.RUnlock()
	return &Log{zl: base}
}

// Named tags every entry with a component name.
func Named(component string) *Log {
	return New().With("component", component)
}

func (l *Log) With(key string, value interface{}) *Log {
	return &Log{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Log) WithError(err error) *Log {
	return &Log{zl: l.zl.With().Err(err).Logger()}
}

func (l *Log) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

func (l *Log) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *Log) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

func (l *Log) Error(msg string) {
	l.zl.Error().Msg(msg)
}

// Zerolog exposes the underlying logger for libraries that want one.
func (l *Log) Zerolog() zerolog.Logger {
	return l.zl
}
