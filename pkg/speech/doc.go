// Package speech wraps the vendor speech endpoints: text to speech, REST
// transcription, and transcription over the realtime WebSocket.
//
// Vendor failures are returned as *VendorError so callers can log the
// upstream status without parsing messages. Calls are never retried.
package speech
