package tracker

import (
	"net/http"

	"github.com/okian/irontrials/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCacheSize sets how many groups the last-good caches remember.
func WithCacheSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
