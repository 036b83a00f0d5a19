// Package logger is the logging seam shared by every ldash package. Core
// packages take a Logger and never reach for the log package directly, so the
// TUI can send output to a file and tests can capture it.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// DebugEnv enables debug output when set to any non-empty value.
const DebugEnv = "LDASH_DEBUG"

// Level names a severity. The values double as the tags BufferLogger records.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger takes printf-style messages at four levels.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes through the standard log package, so whatever output
// tea.LogToFile or a test installs is honoured.
type envLogger struct {
	prefix string
}

// NewEnvLogger returns a logger that prefixes every line with prefix, for
// example "[ldash]". Debug lines appear only while LDASH_DEBUG is set.
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

func (l *envLogger) logf(level Level, format string, args ...interface{}) {
	var b strings.Builder
	if l.prefix != "" {
		b.WriteString(l.prefix)
		b.WriteByte(' ')
	}
	switch level {
	case LevelDebug:
		if os.Getenv(DebugEnv) == "" {
			return
		}
	case LevelWarn:
		b.WriteString("WARN: ")
	case LevelError:
		b.WriteString("ERROR: ")
	}
	fmt.Fprintf(&b, format, args...)
	log.Print(b.String())
}

func (l *envLogger) Debug(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *envLogger) Info(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *envLogger) Warn(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *envLogger) Error(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

// named tags each message with a component before handing it to the parent.
type named struct {
	parent    Logger
	component string
}

// Named scopes parent to a component: Named(l, "push").Warn("x") logs
// "[push] x" through l. A nil parent means the default logger.
func Named(parent Logger, component string) Logger {
	return &named{parent: OrDefault(parent), component: "[" + component + "] "}
}

func (n *named) Debug(format string, args ...interface{}) {
	n.parent.Debug(n.component+format, args...)
}

func (n *named) Info(format string, args ...interface{}) {
	n.parent.Info(n.component+format, args...)
}

func (n *named) Warn(format string, args ...interface{}) {
	n.parent.Warn(n.component+format, args...)
}

func (n *named) Error(format string, args ...interface{}) {
	n.parent.Error(n.component+format, args...)
}

type noopLogger struct{}

// Noop discards everything.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// LogMessage is one captured line.
type LogMessage struct {
	Level   Level
	Message string
}

// BufferLogger records messages for assertions. The loop goroutine and
// network goroutines may log to it concurrently.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

func NewBufferLogger() *BufferLogger {
	return &BufferLogger{Messages: make([]LogMessage, 0)}
}

func (l *BufferLogger) record(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.record(LevelDebug, format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.record(LevelInfo, format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.record(LevelWarn, format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.record(LevelError, format, args...) }

// Count returns how many messages were logged at level.
func (l *BufferLogger) Count(level Level) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// HasLevel reports whether anything was logged at level.
func (l *BufferLogger) HasLevel(level Level) bool {
	return l.Count(level) > 0
}

// Contains reports whether a message at level contains substr.
func (l *BufferLogger) Contains(level Level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewEnvLogger("[ldash]")
)

// Default is used wherever a component was given no logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// OrDefault returns l, or Default() when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}
