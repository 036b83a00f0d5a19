package logger

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLog redirects the standard logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestEnvLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		debug string
		emit  func(Logger)
		want  string
	}{
		{name: "debug on", debug: "1", emit: func(l Logger) { l.Debug("tick %d", 3) }, want: "[push] tick 3"},
		{name: "debug off", debug: "", emit: func(l Logger) { l.Debug("tick %d", 3) }, want: ""},
		{name: "info", emit: func(l Logger) { l.Info("connected to %s", "ws://box") }, want: "[push] connected to ws://box"},
		{name: "warn", emit: func(l Logger) { l.Warn("frame dropped") }, want: "[push] WARN: frame dropped"},
		{name: "error", emit: func(l Logger) { l.Error("read: %v", "EOF") }, want: "[push] ERROR: read: EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DebugEnv, tt.debug)
			buf := captureLog(t)

			tt.emit(NewEnvLogger("[push]"))

			if tt.want == "" {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tt.want)
			}
		})
	}
}

func TestEnvLogger_NoPrefix(t *testing.T) {
	buf := captureLog(t)
	NewEnvLogger("").Info("plain %.1f", 2.5)
	assert.Contains(t, buf.String(), "plain 2.5")
	assert.NotContains(t, buf.String(), "[")
}

func TestNamed(t *testing.T) {
	buf := NewBufferLogger()
	l := Named(Named(buf, "dashboard"), "router")

	l.Warn("module not recognized: %q", "ghost")
	l.Debug("dropping request for %s", "swap")

	require.Len(t, buf.Messages, 2)
	assert.Equal(t, LevelWarn, buf.Messages[0].Level)
	assert.Equal(t, `[dashboard] [router] module not recognized: "ghost"`, buf.Messages[0].Message)
	assert.True(t, buf.Contains(LevelDebug, "[router] dropping request for swap"))
}

func TestNamed_NilParentUsesDefault(t *testing.T) {
	buf := NewBufferLogger()
	original := Default()
	SetDefault(buf)
	t.Cleanup(func() { SetDefault(original) })

	Named(nil, "agent").Info("listening")
	assert.True(t, buf.Contains(LevelInfo, "[agent] listening"))
}

func TestNoop(t *testing.T) {
	buf := captureLog(t)
	t.Setenv(DebugEnv, "1")

	l := Noop()
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Debug("a")
	l.Warn("b %d", 1)
	l.Warn("c")

	assert.Equal(t, 2, l.Count(LevelWarn))
	assert.True(t, l.HasLevel(LevelDebug))
	assert.False(t, l.HasLevel(LevelError))
	assert.True(t, l.Contains(LevelWarn, "b 1"))
	assert.False(t, l.Contains(LevelDebug, "b 1"), "level must match")

	l.Clear()
	assert.Empty(t, l.Messages)
	assert.False(t, l.HasLevel(LevelDebug))
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Info("frame %d", j)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, l.Count(LevelInfo))
}

func TestOrDefault(t *testing.T) {
	buf := NewBufferLogger()
	assert.Same(t, buf, OrDefault(buf))
	assert.Equal(t, Default(), OrDefault(nil))
}
