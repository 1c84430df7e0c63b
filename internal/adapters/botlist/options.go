package botlist

import (
	"net/http"
	"time"
)

// Option ajusta el Client en New.
type Option func(*Client)

// WithHTTPClient reemplaza el http.Client (tests con httptest).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout cambia el timeout por request (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}
