// Package upstream provides shared plumbing for outbound provider calls:
// a tuned HTTP client, the error taxonomy, and the retry jitter policy.
package upstream

import (
	"net"
	"net/http"
	"time"
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second
)

// NewHTTPClient creates an HTTP client tuned for provider calls.
// Per-call deadlines come from request contexts, so the client itself
// carries no total timeout. Connection pools are bounded per host so a
// slow gateway cannot exhaust sockets.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// UserAgent identifies outbound requests from this service.
const UserAgent = "gall3ry/1.0"

// RequestIDHeader propagates the inbound request id to upstreams.
const RequestIDHeader = "X-Request-ID"
