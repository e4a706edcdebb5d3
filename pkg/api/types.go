package api

// ProcessAudioRequest is the body of POST /api/process-audio
type ProcessAudioRequest struct {
	AudioData string `json:"audioData"`
	SessionID string `json:"sessionId"`
}

// ProcessAudioResponse is returned when a clip was transcribed
type ProcessAudioResponse struct {
	Text string `json:"text"`
}

// TTSRequest is the body of POST /api/tts
type TTSRequest struct {
	Text string `json:"text"`
}

// TranscriptsEvent is the payload of one SSE data event
type TranscriptsEvent struct {
	Transcripts []string `json:"transcripts"`
}

// ErrorResponse is the error envelope returned by every handler
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status        string  `json:"status"`
	Sessions      int     `json:"sessions"`
	Relays        int     `json:"relays"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Error messages shared with the browser client.
const (
	msgAudioAndSessionRequired = "Audio data and session ID are required"
	msgInvalidBody             = "Invalid request body"
	msgBodyTooLarge            = "Request body too large"
	msgInvalidAudio            = "Invalid audio data"
	msgInvalidSessionID        = "invalid session id"
	msgSessionNotFound         = "session not found"
	msgProcessAudioFailed      = "Failed to process audio"
	msgTextRequired            = "Text is required"
	msgServerConfig            = "Server configuration error"
	msgSpeechFailed            = "Failed to generate speech"
	msgTooManyRequests         = "Too Many Requests"
	msgShuttingDown            = "Server is shutting down"
	msgInternal                = "internal server error"
)
