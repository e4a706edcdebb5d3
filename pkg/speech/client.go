package speech

import (
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/harun/heycoach/internal/metrics"
)

// ClientConfig holds vendor connection settings shared by the REST clients.
type ClientConfig struct {
	APIKey     string
	BaseURL    string // empty uses the SDK default
	HTTPClient *http.Client
}

func newClient(cfg ClientConfig) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return openai.NewClient(opts...)
}

// observe records one vendor call
func observe(m *metrics.Metrics, op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.VendorRequestsTotal.WithLabelValues(op, status).Inc()
	m.VendorRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
