// Package transcript holds pending transcripts per browser recording session.
//
// Invariants:
// - A session must be opened before transcripts can be appended to it.
// - Drain returns pending transcripts in append order and clears them.
// - Idle sessions without a live subscriber are removed after the TTL.
// - All operations are safe for concurrent use.
//
// Usage:
//
//	store := transcript.NewStore(transcript.Options{TTL: 30 * time.Second})
//	_ = store.Open("session-1712345678901")
//	_ = store.Append("session-1712345678901", "hello coach")
//	pending, _ := store.Drain("session-1712345678901")
//	_ = pending
package transcript
