package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config contains optional client configuration
type Config struct {
	// Timeout bounds a whole request including the body; 0 means none
	Timeout time.Duration

	// UserAgent is sent when the caller did not supply one
	UserAgent string

	// RPS and Burst throttle outbound requests; RPS 0 disables throttling
	RPS   int
	Burst int

	MaxIdleConnsPerHost int

	// BufferSize is the transport read/write buffer in bytes
	BufferSize int
}

// DefaultConfig returns default client configuration
func DefaultConfig() *Config {
	return &Config{
		MaxIdleConnsPerHost: 10,
		BufferSize:          64 * 1024,
	}
}

// New creates the HTTP client used for remote fetches
func New(cfg *Config, logger *zap.Logger) (*http.Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.IdleConnTimeout = 90 * time.Second
	if cfg.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	if cfg.BufferSize > 0 {
		transport.ReadBufferSize = cfg.BufferSize
		transport.WriteBufferSize = cfg.BufferSize
	}

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = userAgent{value: cfg.UserAgent, base: rt}
	}
	if cfg.RPS > 0 {
		throttled, err := NewThrottle(cfg.RPS, cfg.Burst, logger, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = throttled
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
	}, nil
}

// userAgent sets a default User-Agent header
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", u.value)
	return u.base.RoundTrip(req)
}
