// Package api is the HTTP surface of heycoach: buffered transcription,
// transcript streaming over SSE, text to speech, the WebSocket relay, health,
// metrics, and the static single page app.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/heycoach/internal/metrics"
	"github.com/harun/heycoach/pkg/relay"
	"github.com/harun/heycoach/pkg/speech"
	"github.com/harun/heycoach/pkg/transcript"
)

// Route names used in logs and metric labels.
const (
	routeProcessAudio = "process_audio"
	routeTranscripts  = "transcripts"
	routeTTS          = "tts"
	routeRelay        = "relay"
	routeHealth       = "healthz"
	routeMetrics      = "metrics"
	routeStatic       = "static"
)

// Defaults applied by NewServer
const (
	DefaultPort              = 3001
	DefaultMaxBodyBytes      = 50 << 20
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultPollInterval      = time.Second
	DefaultHeartbeatInterval = 15 * time.Second
)

// Options holds HTTP server settings
type Options struct {
	Host               string
	Port               int // 0 picks a free port
	AllowedOrigins     []string
	StaticDir          string // empty disables static files
	MaxBodyBytes       int64
	RateLimitPerMinute int // 0 disables
	ShutdownTimeout    time.Duration
	PollInterval       time.Duration
	HeartbeatInterval  time.Duration
	MetricsPath        string // empty disables the metrics endpoint
}

// Config wires the server to its components
type Config struct {
	Options     Options
	Store       *transcript.Store
	Janitor     *transcript.Janitor // optional
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Relay       *relay.Relay // optional, nil disables /ws
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// Server is the heycoach HTTP server
type Server struct {
	opts        Options
	store       *transcript.Store
	janitor     *transcript.Janitor
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	relay       *relay.Relay
	metrics     *metrics.Metrics
	rateLimiter *RateLimiter
	logger      zerolog.Logger
	handler     http.Handler

	server    *http.Server
	listener  net.Listener
	startTime time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
	shutdownCh     chan struct{}
	stopOnce       sync.Once
}

// NewServer creates a new server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("transcript store is required")
	}
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics()
	}

	opts := cfg.Options
	if opts.Port < 0 {
		return nil, fmt.Errorf("invalid port: %d", opts.Port)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}

	s := &Server{
		opts:        opts,
		store:       cfg.Store,
		janitor:     cfg.Janitor,
		transcriber: cfg.Transcriber,
		synthesizer: cfg.Synthesizer,
		relay:       cfg.Relay,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("component", "api").Logger(),
		startTime:   time.Now(),
		shutdownCh:  make(chan struct{}),
	}
	if opts.RateLimitPerMinute > 0 {
		s.rateLimiter = NewRateLimiter(opts.RateLimitPerMinute, nil)
	}
	s.handler = s.routes()

	return s, nil
}

// routes builds the full handler chain
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/process-audio", s.instrument(routeProcessAudio, s.guard(s.limit(http.HandlerFunc(s.handleProcessAudio)))))
	mux.Handle("GET /api/transcripts/{sessionId}", s.instrument(routeTranscripts, s.guard(s.limit(http.HandlerFunc(s.handleTranscripts)))))
	mux.Handle("POST /api/tts", s.instrument(routeTTS, s.guard(s.limit(http.HandlerFunc(s.handleTTS)))))
	mux.Handle("GET /healthz", s.instrument(routeHealth, http.HandlerFunc(s.handleHealth)))

	if s.relay != nil {
		mux.Handle("GET /ws", s.instrument(routeRelay, s.relay))
	}
	if s.opts.MetricsPath != "" {
		mux.Handle("GET "+s.opts.MetricsPath, s.instrument(routeMetrics, s.metrics.Handler()))
	}
	if s.opts.StaticDir != "" {
		mux.Handle("GET /", s.instrument(routeStatic, newSPAHandler(s.opts.StaticDir)))
	}

	return s.withCORS(s.withRequestID(s.withRecover(mux)))
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener, starts the janitor and serves in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	if s.janitor != nil {
		if err := s.janitor.Start(); err != nil {
			ln.Close()
			return fmt.Errorf("failed to start session janitor: %w", err)
		}
	}

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP server")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server: new requests get 503, SSE streams and
// relays are closed, and in-flight requests get up to the shutdown timeout.
func (s *Server) Stop() error {
	var stopErr error
	s.stopOnce.Do(func() {
		stopErr = s.stop()
	})
	return stopErr
}

func (s *Server) stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()
	close(s.shutdownCh)

	s.logger.Info().Msg("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if s.relay != nil {
		if err := s.relay.Close(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Relay connections did not close in time")
		}
	}

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.janitor != nil && s.janitor.IsRunning() {
		if err := s.janitor.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to stop session janitor")
		}
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
