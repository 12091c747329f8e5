// Package httpclient provides a shared HTTP client factory with
// connection pooling. Outbound integrations (webhook notifications)
// reuse clients from here instead of constructing their own transports.
package httpclient

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vulndesk/vulndesk/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: 30s).
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections across all
	// hosts (default: 32).
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections stay pooled
	// (default: 90s).
	IdleConnTimeout time.Duration

	// DialTimeout is the timeout for establishing connections
	// (default: 10s).
	DialTimeout time.Duration
}

// DefaultConfig returns defaults sized for low-volume delivery of
// notification payloads, not bulk traffic.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxIdleConns:    32,
		IdleConnTimeout: 90 * time.Second,
		DialTimeout:     duration.Webhook,
	}
}

var (
	defaultClient *http.Client
	defaultOnce   sync.Once
)

// Default returns the shared pooled client.
func Default() *http.Client {
	defaultOnce.Do(func() {
		defaultClient = New(DefaultConfig())
	})
	return defaultClient
}

// New builds a client from cfg, filling unset fields from
// DefaultConfig. Each call returns a fresh client with its own
// transport.
func New(cfg Config) *http.Client {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = def.DialTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}
