package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/harun/heycoach/internal/metrics"
)

// Audio is synthesized speech ready to send to the browser.
type Audio struct {
	Data        []byte
	ContentType string
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// SynthesizerConfig configures OpenAISynthesizer
type SynthesizerConfig struct {
	ClientConfig
	Model  string // tts-1
	Voice  string // alloy
	Format string // mp3
}

// OpenAISynthesizer calls the vendor speech endpoint.
type OpenAISynthesizer struct {
	client  openai.Client
	cfg     SynthesizerConfig
	metrics *metrics.Metrics
}

// NewOpenAISynthesizer creates a synthesizer. A nil m gets a private registry.
func NewOpenAISynthesizer(cfg SynthesizerConfig, m *metrics.Metrics) *OpenAISynthesizer {
	if cfg.Model == "" {
		cfg.Model = string(openai.SpeechModelTTS1)
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &OpenAISynthesizer{
		client:  newClient(cfg.ClientConfig),
		cfg:     cfg,
		metrics: m,
	}
}

// Synthesize generates speech for text
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) (audio *Audio, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if s.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	defer func() { observe(s.metrics, OpSpeech, start, err) }()

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(s.cfg.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(s.cfg.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(s.cfg.Format),
	})
	if err != nil {
		return nil, vendorError(OpSpeech, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vendorError(OpSpeech, fmt.Errorf("failed to read audio: %w", err))
	}

	return &Audio{Data: data, ContentType: contentTypeForFormat(s.cfg.Format)}, nil
}

func contentTypeForFormat(format string) string {
	switch format {
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	default:
		return "audio/mpeg"
	}
}
