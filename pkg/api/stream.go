package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/harun/heycoach/internal/tracing"
	"github.com/harun/heycoach/pkg/transcript"
)

// sseWriter writes server-sent events and flushes after each one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &sseWriter{w: w, flusher: f}, nil
}

// Data sends v as an unnamed data event
func (sw *sseWriter) Data(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", b); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// Comment sends an SSE comment line, ignored by EventSource
func (sw *sseWriter) Comment(text string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// handleTranscripts streams a session's transcripts until the client goes away.
// The session lives as long as at least one stream is subscribed to it.
func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if err := transcript.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidSessionID)
		return
	}

	ctx := tracing.WithSessionID(r.Context(), sessionID)
	logger := tracing.LoggerFromContext(ctx, s.logger)

	sw, err := newSSEWriter(w)
	if err != nil {
		logger.Error().Err(err).Msg("Streaming unsupported")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	release, err := s.store.Subscribe(sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open session")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	defer func() {
		release()
		logger.Info().Msg("Transcript stream closed")
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := sw.Comment("connected"); err != nil {
		return
	}
	logger.Info().Msg("Transcript stream opened")

	poll := time.NewTicker(s.opts.PollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(s.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdownCh:
			return
		case <-heartbeat.C:
			if err := sw.Comment("keep-alive"); err != nil {
				logger.Debug().Err(err).Msg("Failed to write heartbeat")
				return
			}
		case <-poll.C:
			pending, err := s.store.Drain(sessionID)
			if errors.Is(err, transcript.ErrSessionNotFound) {
				// Closed out from under the stream; subscribe again.
				release()
				release, err = s.store.Subscribe(sessionID)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to reopen session")
					release = func() {}
					return
				}
				logger.Debug().Msg("Session reopened")
				continue
			}
			if err != nil {
				logger.Error().Err(err).Msg("Failed to drain session")
				return
			}
			if len(pending) == 0 {
				continue
			}
			if err := sw.Data(TranscriptsEvent{Transcripts: pending}); err != nil {
				logger.Debug().Err(err).Int("dropped", len(pending)).Msg("Failed to write transcripts")
				return
			}
		}
	}
}
