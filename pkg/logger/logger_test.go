package logger_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agent-runner/pkg/logger"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	logger.Use(zap.New(core))
	t.Cleanup(logger.InitNop)
	return logs
}

func TestDefaultIsNop(t *testing.T) {
	logger.InitNop()
	assert.NotPanics(t, func() {
		logger.Info("dropped")
		logger.Error("dropped", zap.String("k", "v"))
	})
	assert.NoError(t, logger.Sync())
}

func TestLevelsAndDefaultFields(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)
	logger.SetDefaultComponent("runner-test")
	t.Cleanup(func() { logger.SetDefaultComponent("agent-runner") })

	logger.Debug("debug msg")
	logger.Info("info msg", zap.Int("pid", 42))
	logger.Warn("warn msg")
	logger.Error("error msg")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "info msg", entries[1].Message)

	ctx := entries[1].ContextMap()
	assert.Equal(t, "runner-test", ctx["component"])
	assert.Equal(t, int64(42), ctx["pid"])
	assert.NotEmpty(t, ctx["goid"])
	assert.Equal(t, "runner-test", logger.GetDefaultComponent())
}

func TestLevelFiltering(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("shown").Len())
}

func TestPanic(t *testing.T) {
	observe(t, zapcore.DebugLevel)
	assert.Panics(t, func() { logger.Panic("panic msg") })
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, logger.ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, logger.ParseLevel("err"))
	assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel("bogus"))
}

func TestNewWritesRotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := logger.New(logger.Options{Level: "info", Format: "json", Path: dir, MaxSize: 1, MaxAge: 1})
	require.NoError(t, err)

	l.Info("written to file")
	_ = l.Sync()

	matches, err := filepath.Glob(filepath.Join(dir, "agent-runner-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, logger.FileName(dir, time.Now()), matches[0])
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
}
