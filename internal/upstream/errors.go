package upstream

import (
	"context"
	"errors"
	"net"

	"github.com/gall3ry/gall3ry/internal/model"
)

// Sentinel errors forming the provider error taxonomy. Raw transport
// details are wrapped around these so callers can switch on errors.Is
// without the provider internals leaking into canonical results.
var (
	// ErrTimeout marks a provider call that exceeded its deadline.
	ErrTimeout = errors.New("upstream timeout")
	// ErrUnauthorized marks missing or rejected credentials. Never retried.
	ErrUnauthorized = errors.New("upstream unauthorized")
	// ErrNotFound marks a well-formed "no such resource" answer.
	// For profile lookups this is not a failure.
	ErrNotFound = errors.New("upstream not found")
	// ErrUpstream marks any other non-2xx or malformed response.
	ErrUpstream = errors.New("upstream error")
)

// ClassifyStatus maps an HTTP response status to the taxonomy.
// Returns nil for 2xx.
func ClassifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 401 || status == 403:
		return ErrUnauthorized
	case status == 404:
		return ErrNotFound
	default:
		return ErrUpstream
	}
}

// Classify folds a transport-level error into the taxonomy.
// Context deadline expiry and net timeouts become ErrTimeout.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrUpstream) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrUpstream
}

// Kind maps a taxonomy error to the stable tag reported inside an
// aggregation page.
func Kind(err error) model.ErrorKind {
	switch {
	case errors.Is(err, ErrTimeout):
		return model.ErrorKindTimeout
	case errors.Is(err, ErrUnauthorized):
		return model.ErrorKindUnauthorized
	default:
		return model.ErrorKindUpstream
	}
}
