package speech

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/harun/heycoach/internal/metrics"
)

// DefaultTranscribeTimeout bounds one upstream transcription.
const DefaultTranscribeTimeout = 30 * time.Second

// Transcriber turns a recorded clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (string, error)
}

// TranscriberConfig configures OpenAITranscriber
type TranscriberConfig struct {
	ClientConfig
	Model    string // whisper-1
	Language string // optional ISO-639-1 hint
	Timeout  time.Duration
}

// OpenAITranscriber uploads each clip to the vendor transcription endpoint.
type OpenAITranscriber struct {
	client  openai.Client
	cfg     TranscriberConfig
	metrics *metrics.Metrics
}

// NewOpenAITranscriber creates a REST transcriber. A nil m gets a private registry.
func NewOpenAITranscriber(cfg TranscriberConfig, m *metrics.Metrics) *OpenAITranscriber {
	if cfg.Model == "" {
		cfg.Model = string(openai.AudioModelWhisper1)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTranscribeTimeout
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &OpenAITranscriber{
		client:  newClient(cfg.ClientConfig),
		cfg:     cfg,
		metrics: m,
	}
}

// Transcribe returns the text spoken in clip. Silence yields an empty string.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, clip Clip) (text string, err error) {
	if len(clip.Data) == 0 {
		return "", ErrInvalidAudio
	}
	if t.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() { observe(t.metrics, OpTranscription, start, err) }()

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(clip.Data), clip.Filename(), clip.ContentType),
		Model: openai.AudioModel(t.cfg.Model),
	}
	if t.cfg.Language != "" {
		params.Language = openai.String(t.cfg.Language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", vendorError(OpTranscription, err)
	}

	return strings.TrimSpace(resp.Text), nil
}
