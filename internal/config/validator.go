package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an OpenAI API key format
func (v *Validator) ValidateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("openai API key cannot be empty")
	}
	if !strings.HasPrefix(key, "sk-") {
		return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
	}
	return nil
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateOrigin validates a CORS origin entry
func (v *Validator) ValidateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid allowed origin: %q", origin)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("allowed origin must not contain a path: %q", origin)
	}
	return nil
}

// ValidateRealtimeURL validates the upstream realtime endpoint
func (v *Validator) ValidateRealtimeURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid realtime url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("realtime url must use ws or wss, got %q", u.Scheme)
	}
	return nil
}

// ValidateTranscriptionMode validates transcription mode
func (v *Validator) ValidateTranscriptionMode(mode string) error {
	validModes := []string{TranscriptionModeREST, TranscriptionModeRealtime}
	for _, valid := range validModes {
		if mode == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid transcription mode: %s (must be one of: %s)", mode, strings.Join(validModes, ", "))
}

// ValidateVoice validates a TTS voice name
func (v *Validator) ValidateVoice(voice string) error {
	if voice == "" {
		return fmt.Errorf("tts voice cannot be empty")
	}

	knownVoices := []string{"alloy", "ash", "ballad", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer", "verse"}
	for _, known := range knownVoices {
		if voice == known {
			return nil
		}
	}
	return fmt.Errorf("invalid tts voice: %s (must be one of: %s)", voice, strings.Join(knownVoices, ", "))
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, err)
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if err := v.ValidateOrigin(origin); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		errors = append(errors, fmt.Errorf("server.max_body_bytes must be > 0"))
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Errorf("server.rate_limit_per_minute must be >= 0"))
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Errorf("server.shutdown_timeout must be > 0"))
	}

	// The key is optional at startup; endpoints that need it report a configuration error.
	// Custom base URLs may front vendors with other key formats.
	if cfg.OpenAI.APIKey != "" && cfg.OpenAI.BaseURL == "" {
		if err := v.ValidateAPIKey(cfg.OpenAI.APIKey); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateRealtimeURL(cfg.OpenAI.RealtimeURL); err != nil {
		errors = append(errors, err)
	}

	if cfg.Relay.HandshakeTimeout <= 0 {
		errors = append(errors, fmt.Errorf("relay.handshake_timeout must be > 0"))
	}
	if cfg.Relay.WriteTimeout <= 0 {
		errors = append(errors, fmt.Errorf("relay.write_timeout must be > 0"))
	}
	if cfg.Relay.MaxMessageBytes <= 0 {
		errors = append(errors, fmt.Errorf("relay.max_message_bytes must be > 0"))
	}

	if err := v.ValidateTranscriptionMode(cfg.Transcription.Mode); err != nil {
		errors = append(errors, err)
	}
	if cfg.Transcription.Model == "" {
		errors = append(errors, fmt.Errorf("transcription.model cannot be empty"))
	}
	if cfg.Transcription.Timeout <= 0 {
		errors = append(errors, fmt.Errorf("transcription.timeout must be > 0"))
	}

	if cfg.TTS.Model == "" {
		errors = append(errors, fmt.Errorf("tts.model cannot be empty"))
	}
	if err := v.ValidateVoice(cfg.TTS.Voice); err != nil {
		errors = append(errors, err)
	}

	if cfg.Sessions.TTL <= 0 {
		errors = append(errors, fmt.Errorf("sessions.ttl must be > 0"))
	}
	if cfg.Sessions.PollInterval <= 0 {
		errors = append(errors, fmt.Errorf("sessions.poll_interval_ms must be > 0"))
	}
	if cfg.Sessions.TTL > 0 && cfg.Sessions.PollIntervalDuration() >= cfg.Sessions.TTLDuration() {
		errors = append(errors, fmt.Errorf("sessions.poll_interval_ms must be shorter than sessions.ttl"))
	}
	if cfg.Sessions.HeartbeatInterval <= 0 {
		errors = append(errors, fmt.Errorf("sessions.heartbeat_interval must be > 0"))
	}
	if cfg.Sessions.SweepInterval <= 0 {
		errors = append(errors, fmt.Errorf("sessions.sweep_interval must be > 0"))
	}
	if cfg.Sessions.MaxPending < 0 {
		errors = append(errors, fmt.Errorf("sessions.max_pending must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errors = append(errors, fmt.Errorf("metrics.path must start with /"))
	}

	return errors
}
