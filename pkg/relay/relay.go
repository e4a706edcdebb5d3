// Package relay bridges browser WebSockets to the vendor realtime endpoint.
//
// Frames are copied verbatim in both directions with their message type
// preserved. When either side goes away the other is closed with a close
// frame. The relay never buffers, retries, or resumes.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/harun/heycoach/internal/metrics"
	"github.com/harun/heycoach/pkg/speech"
)

// Error stages, also used as metric labels.
const (
	StageDial          = "dial"
	StageAuth          = "auth"
	StageUpstreamRead  = "upstream_read"
	StageUpstreamWrite = "upstream_write"
	StageClientWrite   = "client_write"
)

// Defaults applied by New
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultMaxMessageBytes  = 1 << 20
)

// ErrorMessage is sent to the browser when the upstream side fails.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// UpstreamErrorMessage is the only error the browser ever sees from the relay.
var UpstreamErrorMessage = ErrorMessage{Type: "error", Error: "upstream connection error"}

// Config holds relay configuration
type Config struct {
	UpstreamURL      string
	APIKey           string
	SendAuthFrame    bool
	AllowedOrigins   []string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageBytes  int64
	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
}

// Relay accepts browser WebSockets and pipes each one to a fresh upstream connection.
type Relay struct {
	cfg      Config
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
	conns    *connRegistry
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	handlers       sync.WaitGroup
}

// New creates a relay
func New(cfg Config) (*Relay, error) {
	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("upstream url is required")
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics()
	}

	r := &Relay{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		conns:   newConnRegistry(),
		logger:  cfg.Logger.With().Str("component", "relay").Logger(),
		metrics: cfg.Metrics,
	}
	r.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      r.checkOrigin,
	}
	return r, nil
}

// checkOrigin allows requests without an Origin header, any origin when the
// allowlist contains "*", and otherwise only listed origins.
func (r *Relay) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origin = strings.TrimSuffix(origin, "/")
	for _, allowed := range r.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the browser connection and relays it until either side closes.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.shutdownMu.RLock()
	if r.isShuttingDown {
		r.shutdownMu.RUnlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	r.handlers.Add(1)
	r.shutdownMu.RUnlock()
	defer r.handlers.Done()

	client, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn().Err(err).Str("ip", req.RemoteAddr).Msg("Failed to upgrade connection")
		return
	}
	client.SetReadLimit(r.cfg.MaxMessageBytes)

	connID, _ := gonanoid.New()
	logger := r.logger.With().Str("connId", connID).Logger()
	logger.Info().Str("ip", req.RemoteAddr).Msg("Client connected")

	upstream, err := r.dialUpstream(req.Context())
	if err != nil {
		r.metrics.RelayErrorsTotal.WithLabelValues(StageDial).Inc()
		logger.Error().Err(err).Msg("Failed to connect upstream")
		r.failClient(client)
		return
	}
	upstream.SetReadLimit(r.cfg.MaxMessageBytes)

	if r.cfg.SendAuthFrame {
		upstream.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
		if err := upstream.WriteJSON(speech.NewAuthFrame(r.cfg.APIKey)); err != nil {
			r.metrics.RelayErrorsTotal.WithLabelValues(StageAuth).Inc()
			logger.Error().Err(err).Msg("Failed to send auth frame")
			upstream.Close()
			r.failClient(client)
			return
		}
	}

	p := &pair{
		id:          connID,
		remoteAddr:  req.RemoteAddr,
		connectedAt: time.Now(),
		client:      client,
		upstream:    upstream,
		relay:       r,
		logger:      logger,
	}
	if !r.conns.Add(p) {
		p.close(websocket.CloseGoingAway)
		return
	}
	defer r.conns.Remove(connID)

	r.metrics.RelayConnectionsTotal.Inc()
	r.metrics.RelayConnectionsActive.Inc()
	defer r.metrics.RelayConnectionsActive.Dec()

	p.run()
	logger.Info().Dur("duration", time.Since(p.connectedAt)).Msg("Client disconnected")
}

func (r *Relay) dialUpstream(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := r.dialer.DialContext(ctx, r.cfg.UpstreamURL, speech.RealtimeHeader(r.cfg.APIKey))
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial upstream (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial upstream: %w", err)
	}
	return conn, nil
}

// failClient sends the generic upstream error to the browser and closes it.
func (r *Relay) failClient(client *websocket.Conn) {
	deadline := time.Now().Add(r.cfg.WriteTimeout)
	client.SetWriteDeadline(deadline)
	_ = client.WriteJSON(UpstreamErrorMessage)
	_ = client.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	client.Close()
}

// Count returns the number of live relay connections
func (r *Relay) Count() int {
	return r.conns.Count()
}

// Connections returns information about live relay connections
func (r *Relay) Connections() []ConnInfo {
	return r.conns.Infos()
}

// Close refuses new connections, closes every live pair and waits for their
// handlers to return or ctx to end.
func (r *Relay) Close(ctx context.Context) error {
	r.shutdownMu.Lock()
	r.isShuttingDown = true
	r.shutdownMu.Unlock()

	pairs := r.conns.CloseAll()
	for _, p := range pairs {
		p.close(websocket.CloseGoingAway)
	}
	r.logger.Info().Int("connections", len(pairs)).Msg("Closing relay connections")

	done := make(chan struct{})
	go func() {
		r.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to close relay: %w", ctx.Err())
	}
}

// pair is one browser connection and its upstream counterpart.
type pair struct {
	id          string
	remoteAddr  string
	connectedAt time.Time
	client      *websocket.Conn
	upstream    *websocket.Conn
	relay       *Relay
	logger      zerolog.Logger

	clientMu  sync.Mutex // serializes data frames written to the browser
	closed    atomic.Bool
	closeOnce sync.Once
}

// run pipes both directions and returns once both have stopped.
func (p *pair) run() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.pipeUpstream()
	}()
	p.pipeClient()
	wg.Wait()
}

// pipeClient copies browser frames to the upstream connection.
func (p *pair) pipeClient() {
	for {
		msgType, data, err := p.client.ReadMessage()
		if err != nil {
			if !p.closed.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Warn().Err(err).Msg("Client read error")
			}
			p.close(websocket.CloseNormalClosure)
			return
		}

		if err := p.write(p.upstream, msgType, data); err != nil {
			if !p.closed.Load() {
				p.relay.metrics.RelayErrorsTotal.WithLabelValues(StageUpstreamWrite).Inc()
				p.logger.Error().Err(err).Msg("Failed to write upstream")
				p.fail()
			}
			return
		}
		p.relay.metrics.RelayMessagesTotal.WithLabelValues(metrics.DirectionClientToUpstream).Inc()
	}
}

// pipeUpstream copies upstream frames to the browser.
func (p *pair) pipeUpstream() {
	for {
		msgType, data, err := p.upstream.ReadMessage()
		if err != nil {
			if p.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug().Msg("Upstream closed")
				p.close(websocket.CloseNormalClosure)
				return
			}
			p.relay.metrics.RelayErrorsTotal.WithLabelValues(StageUpstreamRead).Inc()
			p.logger.Error().Err(err).Msg("Upstream read error")
			p.fail()
			return
		}

		p.clientMu.Lock()
		err = p.write(p.client, msgType, data)
		p.clientMu.Unlock()
		if err != nil {
			if !p.closed.Load() {
				p.relay.metrics.RelayErrorsTotal.WithLabelValues(StageClientWrite).Inc()
				p.logger.Warn().Err(err).Msg("Failed to write to client")
				p.close(websocket.CloseNormalClosure)
			}
			return
		}
		p.relay.metrics.RelayMessagesTotal.WithLabelValues(metrics.DirectionUpstreamToClient).Inc()
	}
}

func (p *pair) write(conn *websocket.Conn, msgType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(p.relay.cfg.WriteTimeout))
	return conn.WriteMessage(msgType, data)
}

// fail tells the browser the upstream failed, then closes the pair.
func (p *pair) fail() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.clientMu.Lock()
		p.relay.failClient(p.client)
		p.clientMu.Unlock()
		p.closeConn(p.upstream, websocket.CloseNormalClosure)
	})
}

// close sends a close frame with code to both sides and closes them.
func (p *pair) close(code int) {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.closeConn(p.client, code)
		p.closeConn(p.upstream, code)
	})
}

func (p *pair) closeConn(conn *websocket.Conn, code int) {
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""),
		time.Now().Add(time.Second))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		p.logger.Debug().Err(err).Msg("Failed to send close frame")
	}
	conn.Close()
}
