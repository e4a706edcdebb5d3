package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.RelayConnectionsActive == nil {
		t.Error("RelayConnectionsActive is nil")
	}
	if m.SessionsActive == nil {
		t.Error("SessionsActive is nil")
	}
	if m.VendorRequestsTotal == nil {
		t.Error("VendorRequestsTotal is nil")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	// Record some sample metrics so they appear in output
	m.HTTPRequestsTotal.WithLabelValues("/api/tts", "POST", "200").Inc()
	m.HTTPRequestDuration.WithLabelValues("/api/tts").Observe(0.2)
	m.RelayMessagesTotal.WithLabelValues(DirectionClientToUpstream).Inc()
	m.RelayErrorsTotal.WithLabelValues("dial").Inc()
	m.VendorRequestsTotal.WithLabelValues("speech", "ok").Inc()
	m.VendorRequestDuration.WithLabelValues("speech").Observe(0.5)

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"http_rate_limited_total",
		"relay_connections_active",
		"relay_connections_total",
		"relay_messages_total",
		"relay_errors_total",
		"transcript_sessions_active",
		"transcript_sessions_expired_total",
		"transcripts_appended_total",
		"transcripts_dropped_total",
		"vendor_requests_total",
		"vendor_request_duration_seconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()

	registry := m.Registry()
	if registry == nil {
		t.Fatal("Registry returned nil")
	}

	m.HTTPRequestsTotal.WithLabelValues("/healthz", "GET", "200").Inc()
	m.HTTPRequestDuration.WithLabelValues("/healthz").Observe(0.001)
	m.RelayMessagesTotal.WithLabelValues(DirectionUpstreamToClient).Inc()
	m.RelayErrorsTotal.WithLabelValues("read").Inc()
	m.VendorRequestsTotal.WithLabelValues("transcription", "error").Inc()
	m.VendorRequestDuration.WithLabelValues("transcription").Observe(1.0)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[*mf.Name] = true
	}

	expectedCount := 13
	if len(metricNames) != expectedCount {
		t.Errorf("Expected %d metrics, got %d", expectedCount, len(metricNames))
	}
}

func TestRelayMetrics(t *testing.T) {
	m := NewMetrics()

	m.RelayConnectionsTotal.Inc()
	m.RelayConnectionsActive.Inc()
	m.RelayConnectionsActive.Inc()
	m.RelayConnectionsActive.Dec()

	if got := testutil.ToFloat64(m.RelayConnectionsActive); got != 1 {
		t.Errorf("Expected 1 active relay connection, got %v", got)
	}
	if got := testutil.ToFloat64(m.RelayConnectionsTotal); got != 1 {
		t.Errorf("Expected 1 relay connection total, got %v", got)
	}

	m.RelayMessagesTotal.WithLabelValues(DirectionClientToUpstream).Add(3)
	if got := testutil.ToFloat64(m.RelayMessagesTotal.WithLabelValues(DirectionClientToUpstream)); got != 3 {
		t.Errorf("Expected 3 forwarded messages, got %v", got)
	}
}

func TestSessionMetrics(t *testing.T) {
	m := NewMetrics()

	m.SessionsActive.Set(4)
	m.SessionsExpired.Add(2)
	m.TranscriptsAppended.Inc()
	m.TranscriptsDropped.Inc()

	if got := testutil.ToFloat64(m.SessionsActive); got != 4 {
		t.Errorf("Expected 4 active sessions, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsExpired); got != 2 {
		t.Errorf("Expected 2 expired sessions, got %v", got)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RateLimitedTotal.Inc()

	if got := testutil.ToFloat64(b.RateLimitedTotal); got != 0 {
		t.Errorf("Expected isolated registries, got %v", got)
	}
}
