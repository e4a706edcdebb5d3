package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "info", Console: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Str("sessionId", "session-1").Msg("hello")
		assert.Contains(t, buf.String(), `"sessionId":"session-1"`)
		assert.Contains(t, buf.String(), `"message":"hello"`)
	})

	t.Run("create logger with file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "test.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)
		logger.Info().Msg("test message")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "test message")
	})

	t.Run("file output rotates when max size is set", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "test.log")

		logger, err := New(Config{Level: "info", File: logFile, MaxSize: 1})
		require.NoError(t, err)
		defer logger.Close()

		_, ok := logger.closer.(*RotatingWriter)
		assert.True(t, ok)
	})

	t.Run("create logger with redaction", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "info", Console: true, Output: buf, Redaction: true})
		require.NoError(t, err)
		defer logger.Close()
		assert.NotNil(t, logger.redactor)

		logger.Info().Str("auth", "Bearer sk-abcdefghijklmnopqrstuvwxyz0123").Msg("dialing upstream")
		assert.NotContains(t, buf.String(), "sk-abcdefghijklmnopqrstuvwxyz0123")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})
}

func TestLoggerMethods(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	logger, err := New(Config{Level: "debug", File: logFile})
	require.NoError(t, err)
	defer logger.Close()

	t.Run("debug", func(t *testing.T) {
		event := logger.Debug()
		assert.NotNil(t, event)
		event.Msg("debug message")
	})

	t.Run("info", func(t *testing.T) {
		event := logger.Info()
		assert.NotNil(t, event)
		event.Msg("info message")
	})

	t.Run("warn", func(t *testing.T) {
		event := logger.Warn()
		assert.NotNil(t, event)
		event.Msg("warn message")
	})

	t.Run("error", func(t *testing.T) {
		event := logger.Error()
		assert.NotNil(t, event)
		event.Msg("error message")
	})
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Console: true, Output: buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug().Msg("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	require.NoError(t, logger.SetLevel("debug"))
	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")

	assert.Error(t, logger.SetLevel("loud"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Console: true, Output: buf})
	require.NoError(t, err)
	defer logger.Close()

	relayLog := logger.Component("relay")
	relayLog.Info().Msg("connected")
	assert.Contains(t, buf.String(), `"component":"relay"`)
}

func TestGetZerolog(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	defer logger.Close()
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	logger.GetZerolog()
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
