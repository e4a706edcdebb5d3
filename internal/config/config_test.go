package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, []string{"https://hey-coach-seven.vercel.app", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.Relay.SendAuthFrame)
	assert.Equal(t, "rest", cfg.Transcription.Mode)
	assert.Equal(t, "whisper-1", cfg.Transcription.Model)
	assert.Equal(t, "tts-1", cfg.TTS.Model)
	assert.Equal(t, "alloy", cfg.TTS.Voice)
	assert.Equal(t, 30*time.Second, cfg.Sessions.TTLDuration())
	assert.Equal(t, time.Second, cfg.Sessions.PollIntervalDuration())
	assert.Equal(t, 10*time.Second, cfg.Sessions.SweepIntervalDuration())
	assert.Equal(t, 500, cfg.Sessions.MaxPending)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid without an API key", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("valid API key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OpenAI.APIKey = "sk-test123"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("malformed API key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OpenAI.APIKey = "not-a-key"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sk-")
	})

	t.Run("custom base URL accepts any key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OpenAI.APIKey = "proxy-key"
		cfg.OpenAI.BaseURL = "http://localhost:8080/v1"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = 0

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("invalid transcription mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Transcription.Mode = "batch"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "transcription mode")
	})

	t.Run("collects every error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Sessions.TTL = 0
		cfg.Sessions.PollInterval = -1
		cfg.Logging.Level = "verbose"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sessions.ttl")
		assert.Contains(t, err.Error(), "sessions.poll_interval_ms")
		assert.Contains(t, err.Error(), "log level")
	})
}

func TestConfigStringMasksKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-secret-value"

	out := cfg.String()
	assert.NotContains(t, out, "sk-secret-value")
	assert.Contains(t, out, "********")
	assert.Equal(t, "sk-secret-value", cfg.OpenAI.APIKey)
}
