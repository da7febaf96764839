package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	l, err = NewLogger(LogConfig{Level: LevelDebug, Format: "console", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_EmptyOutputPaths(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewLoggerWithLevel(t *testing.T) {
	l, lvl, err := NewLoggerWithLevel(LogConfig{Level: LevelWarn, OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "warn", lvl.Level())

	lvl.SetLevel(LevelDebug)
	assert.Equal(t, "debug", lvl.Level())
	lvl.SetLevel("bogus")
	assert.Equal(t, "info", lvl.Level())
}

func TestDefaultConstructors(t *testing.T) {
	assert.NotNil(t, NewDefaultLogger())
	assert.NotNil(t, NewDevelopmentLogger())
	assert.NotNil(t, NewNopLogger())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warn "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(LevelError))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapLogger_FieldsAndLevels(t *testing.T) {
	l, logs := newObservedLogger(zapcore.InfoLevel)

	l.Debug("dropped")
	l.Info("case loaded", CaseID("C1"), Int("groups", 3), Duration("took", time.Second))
	l.With(RunID("R1")).Named("coordinator").Warn("stale response", GroupID("G1"))
	l.Error("fetch failed", Err(errors.New("boom")))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, "case loaded", entries[0].Message)
	assert.Equal(t, "C1", entries[0].ContextMap()[KeyCaseID])
	assert.Equal(t, int64(3), entries[0].ContextMap()["groups"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "coordinator", entries[1].LoggerName)
	assert.Equal(t, "R1", entries[1].ContextMap()[KeyRunID])
	assert.Equal(t, "G1", entries[1].ContextMap()[KeyGroupID])

	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestErr_Nil(t *testing.T) {
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("n"))
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, logs := newObservedLogger(zapcore.DebugLevel)
	SetDefault(l)
	SetDefault(nil)
	Default().Info("hello")
	assert.Equal(t, 1, logs.Len())
}
