package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/heycoach/internal/config"
	"github.com/harun/heycoach/internal/logger"
	"github.com/harun/heycoach/internal/metrics"
	"github.com/harun/heycoach/pkg/api"
	"github.com/harun/heycoach/pkg/relay"
	"github.com/harun/heycoach/pkg/speech"
	"github.com/harun/heycoach/pkg/transcript"
)

// Daemon represents the heycoach server process
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	metrics     *metrics.Metrics
	store       *transcript.Store
	janitor     *transcript.Janitor
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	relay       *relay.Relay

	// Services
	server *api.Server

	// Internal
	lifecycle *LifecycleManager

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Status reports whether the daemon is running and for how long
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
	Addr      string
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	d := &Daemon{
		config: cfg,
		logger: log,
	}

	if err := d.initializeCoreModules(); err != nil {
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}
	if err := d.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeCoreModules builds the metrics, session store and vendor clients
func (d *Daemon) initializeCoreModules() error {
	cfg := d.config
	d.metrics = metrics.NewMetrics()

	// 0 in the config file means no cap; the store treats 0 as "use default".
	maxPending := cfg.Sessions.MaxPending
	if maxPending == 0 {
		maxPending = -1
	}
	d.store = transcript.NewStore(transcript.Options{
		TTL:        cfg.Sessions.TTLDuration(),
		MaxPending: maxPending,
		Logger:     d.logger.GetZerolog(),
		Metrics:    d.metrics,
	})
	d.janitor = transcript.NewJanitor(d.store, cfg.Sessions.SweepIntervalDuration(), d.logger.GetZerolog())

	client := speech.ClientConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}

	d.synthesizer = speech.NewOpenAISynthesizer(speech.SynthesizerConfig{
		ClientConfig: client,
		Model:        cfg.TTS.Model,
		Voice:        cfg.TTS.Voice,
		Format:       cfg.TTS.Format,
	}, d.metrics)

	switch cfg.Transcription.Mode {
	case config.TranscriptionModeRealtime:
		d.transcriber = speech.NewRealtimeTranscriber(speech.RealtimeConfig{
			URL:              cfg.OpenAI.RealtimeURL,
			APIKey:           cfg.OpenAI.APIKey,
			SendAuthFrame:    cfg.Relay.SendAuthFrame,
			Timeout:          cfg.Transcription.TimeoutDuration(),
			HandshakeTimeout: cfg.Relay.HandshakeTimeoutDuration(),
		}, d.logger.GetZerolog(), d.metrics)
	default:
		d.transcriber = speech.NewOpenAITranscriber(speech.TranscriberConfig{
			ClientConfig: client,
			Model:        cfg.Transcription.Model,
			Language:     cfg.Transcription.Language,
			Timeout:      cfg.Transcription.TimeoutDuration(),
		}, d.metrics)
	}

	if cfg.OpenAI.APIKey == "" {
		d.logger.Warn().Msg("OpenAI API key is not set; speech endpoints will return configuration errors")
	}

	return nil
}

// initializeServices builds the relay and HTTP server
func (d *Daemon) initializeServices() error {
	cfg := d.config

	var err error
	d.relay, err = relay.New(relay.Config{
		UpstreamURL:      cfg.OpenAI.RealtimeURL,
		APIKey:           cfg.OpenAI.APIKey,
		SendAuthFrame:    cfg.Relay.SendAuthFrame,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		HandshakeTimeout: cfg.Relay.HandshakeTimeoutDuration(),
		WriteTimeout:     cfg.Relay.WriteTimeoutDuration(),
		MaxMessageBytes:  cfg.Relay.MaxMessageBytes,
		Logger:           d.logger.GetZerolog(),
		Metrics:          d.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create relay: %w", err)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	d.server, err = api.NewServer(api.Config{
		Options: api.Options{
			Host:               cfg.Server.Host,
			Port:               cfg.Server.Port,
			AllowedOrigins:     cfg.Server.AllowedOrigins,
			StaticDir:          cfg.Server.StaticDir,
			MaxBodyBytes:       cfg.Server.MaxBodyBytes,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
			ShutdownTimeout:    cfg.Server.ShutdownTimeoutDuration(),
			PollInterval:       cfg.Sessions.PollIntervalDuration(),
			HeartbeatInterval:  cfg.Sessions.HeartbeatIntervalDuration(),
			MetricsPath:        metricsPath,
		},
		Store:       d.store,
		Janitor:     d.janitor,
		Transcriber: d.transcriber,
		Synthesizer: d.synthesizer,
		Relay:       d.relay,
		Metrics:     d.metrics,
		Logger:      d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	return nil
}

// Start writes the PID file and starts serving
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info().Msg("Starting heycoach")

	if err := d.lifecycle.Start(); err != nil {
		d.setStopped()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if err := d.server.Start(); err != nil {
		_ = d.lifecycle.Stop()
		d.setStopped()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	d.logger.Info().
		Str("addr", d.server.Addr()).
		Str("transcription", d.config.Transcription.Mode).
		Msg("heycoach started")

	return nil
}

func (d *Daemon) setStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Stop stops the daemon gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info().Msg("Stopping heycoach")

	if err := d.server.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop HTTP server")
	}

	if err := d.lifecycle.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	d.logger.Info().Msg("heycoach stopped")

	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
		status.Addr = d.server.Addr()
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, or until ctx is done, then stops the daemon.
func (d *Daemon) Wait(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	case <-ctx.Done():
		d.logger.Info().Msg("Context done")
	}

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// ApplyConfig applies the settings that can change without a restart.
// Only the log level is hot reloadable.
func (d *Daemon) ApplyConfig(cfg *config.Config) error {
	if err := d.logger.SetLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("failed to apply log level: %w", err)
	}

	d.mu.Lock()
	d.config.Logging.Level = cfg.Logging.Level
	d.mu.Unlock()

	d.logger.Info().Str("level", cfg.Logging.Level).Msg("Configuration reloaded")
	return nil
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetStore returns the transcript store
func (d *Daemon) GetStore() *transcript.Store {
	return d.store
}

// GetServer returns the HTTP server
func (d *Daemon) GetServer() *api.Server {
	return d.server
}

// GetRelay returns the WebSocket relay
func (d *Daemon) GetRelay() *relay.Relay {
	return d.relay
}

// GetMetrics returns the metrics registry
func (d *Daemon) GetMetrics() *metrics.Metrics {
	return d.metrics
}
