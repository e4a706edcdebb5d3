package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.RequestID != "" {
		logger = logger.With().Str("requestId", tc.RequestID).Logger()
	}
	if tc.SessionID != "" {
		logger = logger.With().Str("sessionId", tc.SessionID).Logger()
	}
	if tc.ConnID != "" {
		logger = logger.With().Str("connId", tc.ConnID).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// Detach returns a background context carrying the same tracing values.
// Work that must outlive the request (e.g. cleanup after a client
// disconnect) uses it so logs stay correlated.
func Detach(ctx context.Context) context.Context {
	return NewContext(context.Background(), FromContext(ctx))
}
