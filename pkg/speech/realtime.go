package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/harun/heycoach/internal/metrics"
)

// RealtimeHeader returns the handshake headers for the vendor realtime endpoint.
func RealtimeHeader(apiKey string) http.Header {
	h := http.Header{}
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	h.Set("OpenAI-Beta", "realtime=v1")
	return h
}

// AuthFrame is the first frame sent upstream when auth frames are enabled.
type AuthFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewAuthFrame builds an auth frame for apiKey
func NewAuthFrame(apiKey string) AuthFrame {
	return AuthFrame{Type: "auth", Token: apiKey}
}

// realtimeMessage is the subset of vendor frames the transcriber reads.
type realtimeMessage struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Error json.RawMessage `json:"error"`
}

// RealtimeConfig configures RealtimeTranscriber
type RealtimeConfig struct {
	URL              string
	APIKey           string
	SendAuthFrame    bool
	Timeout          time.Duration
	HandshakeTimeout time.Duration
}

// RealtimeTranscriber sends each clip over a fresh realtime WebSocket and
// waits for the first transcript frame.
type RealtimeTranscriber struct {
	cfg     RealtimeConfig
	dialer  *websocket.Dialer
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewRealtimeTranscriber creates a realtime transcriber. A nil m gets a private registry.
func NewRealtimeTranscriber(cfg RealtimeConfig, logger zerolog.Logger, m *metrics.Metrics) *RealtimeTranscriber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTranscribeTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &RealtimeTranscriber{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:  logger.With().Str("component", "realtime_transcriber").Logger(),
		metrics: m,
	}
}

// Transcribe sends clip as one binary frame and returns the first transcript.
func (t *RealtimeTranscriber) Transcribe(ctx context.Context, clip Clip) (text string, err error) {
	if len(clip.Data) == 0 {
		return "", ErrInvalidAudio
	}
	if t.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() { observe(t.metrics, OpRealtime, start, err) }()

	conn, resp, err := t.dialer.DialContext(ctx, t.cfg.URL, RealtimeHeader(t.cfg.APIKey))
	if err != nil {
		ve := &VendorError{Op: OpRealtime, Err: fmt.Errorf("failed to connect: %w", err)}
		if resp != nil {
			ve.Status = resp.StatusCode
		}
		return "", ve
	}
	defer conn.Close()

	// Unblock the read loop when the deadline passes or the caller goes away.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if t.cfg.SendAuthFrame {
		if err := conn.WriteJSON(NewAuthFrame(t.cfg.APIKey)); err != nil {
			return "", t.readErr(ctx, fmt.Errorf("failed to send auth frame: %w", err))
		}
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, clip.Data); err != nil {
		return "", t.readErr(ctx, fmt.Errorf("failed to send audio: %w", err))
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", ErrNoTranscript
			}
			return "", t.readErr(ctx, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg realtimeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.logger.Debug().Err(err).Msg("Ignoring unparseable realtime frame")
			continue
		}

		switch msg.Type {
		case "transcript":
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return strings.TrimSpace(msg.Text), nil
		case "error":
			return "", &VendorError{Op: OpRealtime, Err: errors.New(describeVendorError(msg.Error))}
		default:
			t.logger.Debug().Str("type", msg.Type).Msg("Ignoring realtime frame")
		}
	}
}

// readErr prefers the context error when the connection was closed by AfterFunc.
func (t *RealtimeTranscriber) readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &VendorError{Op: OpRealtime, Err: ctxErr}
	}
	return &VendorError{Op: OpRealtime, Err: err}
}

// describeVendorError renders an error field that may be a string or an object.
func describeVendorError(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "vendor error"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		if obj.Code != "" {
			return obj.Code + ": " + obj.Message
		}
		return obj.Message
	}
	return string(raw)
}
