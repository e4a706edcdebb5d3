package api

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/heycoach/pkg/relay"
	"github.com/harun/heycoach/pkg/transcript"
)

func echoUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServerStartStop(t *testing.T) {
	upstream := echoUpstream(t)

	var janitor *transcript.Janitor
	var rl *relay.Relay
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Options.Host = "127.0.0.1"
		cfg.Options.Port = 0
		cfg.Options.ShutdownTimeout = 2 * time.Second

		janitor = transcript.NewJanitor(cfg.Store, time.Hour, zerolog.Nop())
		cfg.Janitor = janitor

		var err error
		rl, err = relay.New(relay.Config{
			UpstreamURL:    "ws" + strings.TrimPrefix(upstream.URL, "http"),
			APIKey:         "sk-test",
			AllowedOrigins: cfg.Options.AllowedOrigins,
			Logger:         zerolog.Nop(),
			Metrics:        cfg.Metrics,
		})
		require.NoError(t, err)
		cfg.Relay = rl
	})

	require.NoError(t, env.server.Start())
	addr := env.server.Addr()
	require.NotEmpty(t, addr)
	assert.True(t, janitor.IsRunning())

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)

	// The relay works through the full middleware chain.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(data))
	assert.Equal(t, 1, rl.Count())

	require.NoError(t, env.server.Stop())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.False(t, janitor.IsRunning())

	_, err = http.Get("http://" + addr + "/healthz")
	assert.Error(t, err, "listener is closed after Stop")
}

func TestServerStartPortInUse(t *testing.T) {
	first := newTestEnv(t, func(cfg *Config) {
		cfg.Options.Host = "127.0.0.1"
	})
	require.NoError(t, first.server.Start())

	_, portStr, err := net.SplitHostPort(first.server.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	second := newTestEnv(t, func(cfg *Config) {
		cfg.Options.Host = "127.0.0.1"
		cfg.Options.Port = port
	})
	assert.Error(t, second.server.Start())
}
