package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for the HTTP request ID
	RequestIDKey ContextKey = "request_id"
	// SessionIDKey is the context key for the transcript session ID
	SessionIDKey ContextKey = "session_id"
	// ConnIDKey is the context key for the relay connection ID
	ConnIDKey ContextKey = "conn_id"
	// RouteKey is the context key for the matched route pattern
	RouteKey ContextKey = "route"
)

// TraceContext holds tracing information
type TraceContext struct {
	RequestID string
	SessionID string
	ConnID    string
	Route     string
}

// NewRequestID generates a new request ID
func NewRequestID() string {
	return uuid.New().String()
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithSessionID adds a transcript session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// WithConnID adds a relay connection ID to the context
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ConnIDKey, connID)
}

// WithRoute adds the matched route pattern to the context
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSessionID retrieves the session ID from the context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// GetConnID retrieves the relay connection ID from the context
func GetConnID(ctx context.Context) string {
	if connID, ok := ctx.Value(ConnIDKey).(string); ok {
		return connID
	}
	return ""
}

// GetRoute retrieves the route pattern from the context
func GetRoute(ctx context.Context) string {
	if route, ok := ctx.Value(RouteKey).(string); ok {
		return route
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		RequestID: GetRequestID(ctx),
		SessionID: GetSessionID(ctx),
		ConnID:    GetConnID(ctx),
		Route:     GetRoute(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.RequestID != "" {
		ctx = WithRequestID(ctx, tc.RequestID)
	}
	if tc.SessionID != "" {
		ctx = WithSessionID(ctx, tc.SessionID)
	}
	if tc.ConnID != "" {
		ctx = WithConnID(ctx, tc.ConnID)
	}
	if tc.Route != "" {
		ctx = WithRoute(ctx, tc.Route)
	}
	return ctx
}

// NewRequestContext returns ctx carrying requestID, or a fresh ID when it is empty
func NewRequestContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = NewRequestID()
	}
	return WithRequestID(ctx, requestID)
}
