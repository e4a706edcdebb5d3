package speech

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

var (
	// ErrEmptyText is returned when asked to synthesize blank text.
	ErrEmptyText = errors.New("text is required")
	// ErrInvalidAudio is returned when an audio payload cannot be decoded.
	ErrInvalidAudio = errors.New("invalid audio data")
	// ErrNoTranscript is returned when the vendor closes without producing a transcript.
	ErrNoTranscript = errors.New("no transcript received")
	// ErrNotConfigured is returned when no vendor API key is set.
	ErrNotConfigured = errors.New("speech vendor not configured")
)

// Vendor operations, also used as metric labels.
const (
	OpSpeech        = "speech"
	OpTranscription = "transcription"
	OpRealtime      = "realtime"
)

// VendorError describes a failed call to the speech vendor.
type VendorError struct {
	Op     string
	Status int // HTTP status when known, 0 otherwise
	Err    error
}

func (e *VendorError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: vendor returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *VendorError) Unwrap() error {
	return e.Err
}

// vendorError wraps err as a *VendorError, lifting the status code from SDK errors.
func vendorError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *VendorError
	if errors.As(err, &ve) {
		return err
	}
	status := 0
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &VendorError{Op: op, Status: status, Err: err}
}
