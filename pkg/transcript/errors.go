package transcript

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound is returned when operating on a session that was never opened or was removed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidSessionID is returned for ids that are empty, too long, or not path-safe.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// MaxSessionIDLength bounds client-supplied session ids.
const MaxSessionIDLength = 128

// ValidateSessionID checks a client-supplied session id.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidSessionID)
	}
	if len(id) > MaxSessionIDLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidSessionID, MaxSessionIDLength)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: cannot contain '..'", ErrInvalidSessionID)
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("%w: cannot contain path separators", ErrInvalidSessionID)
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("%w: cannot contain null bytes", ErrInvalidSessionID)
	}
	return nil
}
