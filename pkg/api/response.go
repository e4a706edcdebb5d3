package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeBody decodes a JSON body capped at limit bytes. On failure it writes
// the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any, logger zerolog.Logger) bool {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		logger.Warn().Int64("limit", tooLarge.Limit).Msg("Request body too large")
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	case errors.Is(err, io.EOF):
		// Empty body decodes to the zero value; field checks report it.
		return true
	default:
		logger.Debug().Err(err).Msg("Failed to decode request body")
		writeError(w, http.StatusBadRequest, msgInvalidBody)
	}
	return false
}
