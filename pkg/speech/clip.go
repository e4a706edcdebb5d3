package speech

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

// DefaultClipContentType is assumed for bare base64 payloads; browsers record webm/opus.
const DefaultClipContentType = "audio/webm"

// Clip is one decoded chunk of recorded audio.
type Clip struct {
	Data        []byte
	ContentType string
}

// DecodeClip decodes a browser audio payload. It accepts a data URL
// (data:audio/webm;codecs=opus;base64,...) or bare base64, optionally
// preceded by a comma-terminated header.
func DecodeClip(s string) (Clip, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Clip{}, fmt.Errorf("%w: empty payload", ErrInvalidAudio)
	}

	if strings.HasPrefix(s, "data:") {
		du, err := dataurl.DecodeString(s)
		if err != nil {
			return Clip{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
		}
		if len(du.Data) == 0 {
			return Clip{}, fmt.Errorf("%w: empty payload", ErrInvalidAudio)
		}
		contentType := du.MediaType.ContentType()
		if contentType == "" || contentType == "text/plain" {
			contentType = DefaultClipContentType
		}
		return Clip{Data: du.Data, ContentType: contentType}, nil
	}

	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("%w: empty payload", ErrInvalidAudio)
	}
	return Clip{Data: data, ContentType: DefaultClipContentType}, nil
}

// Filename returns an upload name whose extension matches the content type.
// The transcription endpoint infers the container from it.
func (c Clip) Filename() string {
	ext := "webm"
	switch c.ContentType {
	case "audio/ogg":
		ext = "ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		ext = "wav"
	case "audio/mpeg", "audio/mp3":
		ext = "mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		ext = "m4a"
	case "audio/flac":
		ext = "flac"
	}
	return "audio." + ext
}
