package config

import (
	"encoding/json"
	"errors"
	"time"
)

// Config represents the main heycoach configuration
type Config struct {
	// HTTP listener
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Vendor credentials and endpoints
	OpenAI OpenAIConfig `json:"openai" mapstructure:"openai"`

	// WebSocket relay
	Relay RelayConfig `json:"relay" mapstructure:"relay"`

	// Speech to text for the buffered variant
	Transcription TranscriptionConfig `json:"transcription" mapstructure:"transcription"`

	// Text to speech
	TTS TTSConfig `json:"tts" mapstructure:"tts"`

	// Transcript session map
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory (PID file, default log file)
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string   `json:"host" mapstructure:"host"`
	Port               int      `json:"port" mapstructure:"port"`
	AllowedOrigins     []string `json:"allowed_origins" mapstructure:"allowed_origins"`
	StaticDir          string   `json:"static_dir" mapstructure:"static_dir"`
	MaxBodyBytes       int64    `json:"max_body_bytes" mapstructure:"max_body_bytes"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"` // 0 disables
	ShutdownTimeout    int      `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`           // seconds
}

// OpenAIConfig holds vendor configuration
type OpenAIConfig struct {
	APIKey      string `json:"api_key" mapstructure:"api_key"`
	BaseURL     string `json:"base_url" mapstructure:"base_url"` // empty uses the SDK default
	RealtimeURL string `json:"realtime_url" mapstructure:"realtime_url"`
}

// RelayConfig holds WebSocket relay settings
type RelayConfig struct {
	SendAuthFrame    bool  `json:"send_auth_frame" mapstructure:"send_auth_frame"`
	HandshakeTimeout int   `json:"handshake_timeout" mapstructure:"handshake_timeout"` // seconds
	WriteTimeout     int   `json:"write_timeout" mapstructure:"write_timeout"`         // seconds
	MaxMessageBytes  int64 `json:"max_message_bytes" mapstructure:"max_message_bytes"`
}

// Transcription modes
const (
	TranscriptionModeREST     = "rest"
	TranscriptionModeRealtime = "realtime"
)

// TranscriptionConfig holds speech to text settings
type TranscriptionConfig struct {
	Mode     string `json:"mode" mapstructure:"mode"` // rest, realtime
	Model    string `json:"model" mapstructure:"model"`
	Language string `json:"language" mapstructure:"language"`
	Timeout  int    `json:"timeout" mapstructure:"timeout"` // seconds
}

// TTSConfig holds text to speech settings
type TTSConfig struct {
	Model  string `json:"model" mapstructure:"model"`
	Voice  string `json:"voice" mapstructure:"voice"`
	Format string `json:"format" mapstructure:"format"`
}

// SessionsConfig holds transcript session settings
type SessionsConfig struct {
	TTL               int `json:"ttl" mapstructure:"ttl"`                               // seconds
	PollInterval      int `json:"poll_interval_ms" mapstructure:"poll_interval_ms"`     // milliseconds
	HeartbeatInterval int `json:"heartbeat_interval" mapstructure:"heartbeat_interval"` // seconds
	SweepInterval     int `json:"sweep_interval" mapstructure:"sweep_interval"`         // seconds
	MaxPending        int `json:"max_pending" mapstructure:"max_pending"`               // 0 disables the cap
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3001,
			AllowedOrigins: []string{
				"https://hey-coach-seven.vercel.app",
				"http://localhost:3000",
			},
			StaticDir:          "",
			MaxBodyBytes:       50 << 20,
			RateLimitPerMinute: 120,
			ShutdownTimeout:    10,
		},
		OpenAI: OpenAIConfig{
			RealtimeURL: "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview",
		},
		Relay: RelayConfig{
			SendAuthFrame:    true,
			HandshakeTimeout: 10,
			WriteTimeout:     10,
			MaxMessageBytes:  1 << 20,
		},
		Transcription: TranscriptionConfig{
			Mode:    TranscriptionModeREST,
			Model:   "whisper-1",
			Timeout: 30,
		},
		TTS: TTSConfig{
			Model:  "tts-1",
			Voice:  "alloy",
			Format: "mp3",
		},
		Sessions: SessionsConfig{
			TTL:               30,
			PollInterval:      1000,
			HeartbeatInterval: 15,
			SweepInterval:     10,
			MaxPending:        500,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// String returns a JSON representation of the config with the API key masked
func (c *Config) String() string {
	masked := *c
	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = "********"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}

// ShutdownTimeoutDuration returns the graceful shutdown budget.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// HandshakeTimeoutDuration returns the upstream dial budget.
func (r RelayConfig) HandshakeTimeoutDuration() time.Duration {
	return time.Duration(r.HandshakeTimeout) * time.Second
}

// WriteTimeoutDuration returns the per-frame write deadline.
func (r RelayConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(r.WriteTimeout) * time.Second
}

// TimeoutDuration returns the upstream transcription budget.
func (t TranscriptionConfig) TimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

func (s SessionsConfig) TTLDuration() time.Duration {
	return time.Duration(s.TTL) * time.Second
}

func (s SessionsConfig) PollIntervalDuration() time.Duration {
	return time.Duration(s.PollInterval) * time.Millisecond
}

func (s SessionsConfig) HeartbeatIntervalDuration() time.Duration {
	return time.Duration(s.HeartbeatInterval) * time.Second
}

func (s SessionsConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(s.SweepInterval) * time.Second
}
