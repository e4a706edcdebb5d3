package tracing

import (
	"context"
	"testing"
)

func TestNewRequestID(t *testing.T) {
	id1 := NewRequestID()
	id2 := NewRequestID()

	if id1 == "" {
		t.Error("NewRequestID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewRequestID returned duplicate IDs")
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("Expected request ID req-1, got %s", got)
	}
}

func TestWithSessionID(t *testing.T) {
	ctx := WithSessionID(context.Background(), "session-1712345678901")

	if got := GetSessionID(ctx); got != "session-1712345678901" {
		t.Errorf("Expected session ID, got %s", got)
	}
}

func TestWithConnID(t *testing.T) {
	ctx := WithConnID(context.Background(), "V1StGXR8_Z5jdHi6B-myT")

	if got := GetConnID(ctx); got != "V1StGXR8_Z5jdHi6B-myT" {
		t.Errorf("Expected conn ID, got %s", got)
	}
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	if GetRequestID(ctx) != "" {
		t.Error("Expected empty request ID")
	}
	if GetSessionID(ctx) != "" {
		t.Error("Expected empty session ID")
	}
	if GetConnID(ctx) != "" {
		t.Error("Expected empty conn ID")
	}
	if GetRoute(ctx) != "" {
		t.Error("Expected empty route")
	}
}

func TestFromContextRoundTrip(t *testing.T) {
	tc := &TraceContext{
		RequestID: "req-1",
		SessionID: "session-1",
		ConnID:    "conn-1",
		Route:     "/api/tts",
	}

	got := FromContext(NewContext(context.Background(), tc))

	if *got != *tc {
		t.Errorf("Expected %+v, got %+v", tc, got)
	}
}

func TestNewContextSkipsEmpty(t *testing.T) {
	ctx := WithSessionID(context.Background(), "keep")
	ctx = NewContext(ctx, &TraceContext{RequestID: "req-2"})

	if GetSessionID(ctx) != "keep" {
		t.Error("Empty fields must not overwrite existing values")
	}
	if GetRequestID(ctx) != "req-2" {
		t.Error("Request ID not set")
	}
}

func TestNewRequestContext(t *testing.T) {
	t.Run("honors supplied ID", func(t *testing.T) {
		ctx := NewRequestContext(context.Background(), "from-header")
		if GetRequestID(ctx) != "from-header" {
			t.Errorf("Expected from-header, got %s", GetRequestID(ctx))
		}
	})

	t.Run("generates when empty", func(t *testing.T) {
		ctx := NewRequestContext(context.Background(), "")
		if GetRequestID(ctx) == "" {
			t.Error("Request ID not generated")
		}
	})
}
