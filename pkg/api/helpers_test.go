package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harun/heycoach/internal/metrics"
	"github.com/harun/heycoach/pkg/speech"
	"github.com/harun/heycoach/pkg/transcript"
)

type stubTranscriber struct {
	mu    sync.Mutex
	clips []speech.Clip
	fn    func(ctx context.Context, clip speech.Clip) (string, error)
}

func (s *stubTranscriber) Transcribe(ctx context.Context, clip speech.Clip) (string, error) {
	s.mu.Lock()
	s.clips = append(s.clips, clip)
	s.mu.Unlock()
	if s.fn == nil {
		return "", nil
	}
	return s.fn(ctx, clip)
}

func (s *stubTranscriber) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

type stubSynthesizer struct {
	fn func(ctx context.Context, text string) (*speech.Audio, error)
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	return s.fn(ctx, text)
}

type testEnv struct {
	server      *Server
	store       *transcript.Store
	transcriber *stubTranscriber
	synthesizer *stubSynthesizer
	metrics     *metrics.Metrics
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	m := metrics.NewMetrics()
	env := &testEnv{
		store: transcript.NewStore(transcript.Options{Logger: zerolog.Nop(), Metrics: m}),
		transcriber: &stubTranscriber{fn: func(ctx context.Context, clip speech.Clip) (string, error) {
			return "keep your back straight", nil
		}},
		synthesizer: &stubSynthesizer{fn: func(ctx context.Context, text string) (*speech.Audio, error) {
			return &speech.Audio{Data: []byte("mp3:" + text), ContentType: "audio/mpeg"}, nil
		}},
		metrics: m,
	}

	cfg := Config{
		Options: Options{
			AllowedOrigins:    []string{"http://localhost:3000"},
			PollInterval:      20 * time.Millisecond,
			HeartbeatInterval: time.Hour,
			MetricsPath:       "/metrics",
		},
		Store:       env.store,
		Transcriber: env.transcriber,
		Synthesizer: env.synthesizer,
		Metrics:     m,
		Logger:      zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })
	env.server = s
	return env
}

func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func audioDataURL(data []byte) string {
	return "data:audio/webm;codecs=opus;base64," + base64.StdEncoding.EncodeToString(data)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}
