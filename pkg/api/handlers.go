package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/heycoach/internal/tracing"
	"github.com/harun/heycoach/pkg/speech"
	"github.com/harun/heycoach/pkg/transcript"
)

// handleProcessAudio transcribes one clip and parks the text in its session.
func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	var req ProcessAudioRequest
	if !decodeBody(w, r, s.opts.MaxBodyBytes, &req, logger) {
		return
	}
	if req.AudioData == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, msgAudioAndSessionRequired)
		return
	}
	if err := transcript.ValidateSessionID(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidSessionID)
		return
	}

	ctx := tracing.WithSessionID(r.Context(), req.SessionID)
	logger = tracing.LoggerFromContext(ctx, s.logger)

	// Fail before paying for a vendor call when nobody is listening.
	if _, ok := s.store.Snapshot(req.SessionID); !ok {
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}

	clip, err := speech.DecodeClip(req.AudioData)
	if err != nil {
		logger.Debug().Err(err).Msg("Rejected audio payload")
		writeError(w, http.StatusBadRequest, msgInvalidAudio)
		return
	}

	text, err := s.transcriber.Transcribe(ctx, clip)
	if err != nil {
		if errors.Is(err, speech.ErrNotConfigured) {
			logger.Error().Msg("OpenAI API key is not set")
			writeError(w, http.StatusInternalServerError, msgServerConfig)
			return
		}
		logVendorError(logger, err, "Failed to transcribe audio")
		writeError(w, http.StatusBadGateway, msgProcessAudioFailed)
		return
	}

	if err := s.store.Append(req.SessionID, text); err != nil {
		if errors.Is(err, transcript.ErrSessionNotFound) {
			logger.Warn().Msg("Session closed while transcribing")
			writeError(w, http.StatusNotFound, msgSessionNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to store transcript")
		writeError(w, http.StatusInternalServerError, msgProcessAudioFailed)
		return
	}

	logger.Debug().Int("bytes", len(clip.Data)).Int("chars", len(text)).Msg("Transcribed audio clip")
	writeJSON(w, http.StatusOK, ProcessAudioResponse{Text: text})
}

// handleTTS synthesizes speech and returns the audio bytes.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	var req TTSRequest
	if !decodeBody(w, r, s.opts.MaxBodyBytes, &req, logger) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, msgTextRequired)
		return
	}

	audio, err := s.synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrEmptyText):
			writeError(w, http.StatusBadRequest, msgTextRequired)
		case errors.Is(err, speech.ErrNotConfigured):
			logger.Error().Msg("OpenAI API key is not set")
			writeError(w, http.StatusInternalServerError, msgServerConfig)
		default:
			logVendorError(logger, err, "Failed to generate speech")
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:   msgSpeechFailed,
				Details: err.Error(),
			})
		}
		return
	}

	logger.Debug().Int("chars", len(req.Text)).Int("bytes", len(audio.Data)).Msg("Generated speech")

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio.Data); err != nil {
		logger.Debug().Err(err).Msg("Failed to write audio response")
	}
}

// handleHealth reports liveness and current load
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	relays := 0
	if s.relay != nil {
		relays = s.relay.Count()
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Sessions:      s.store.Len(),
		Relays:        relays,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	})
}

// logVendorError logs err with the vendor status when one is known.
func logVendorError(logger zerolog.Logger, err error, msg string) {
	event := logger.Error().Err(err)
	var ve *speech.VendorError
	if errors.As(err, &ve) {
		event = event.Str("op", ve.Op)
		if ve.Status != 0 {
			event = event.Int("status", ve.Status)
		}
	}
	event.Msg(msg)
}
