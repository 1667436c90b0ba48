// Package testutil provides shared helpers for tests.
package testutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
)

// DiscardLogger returns a logger that swallows all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StaticJSONServer returns a test server that always answers with the
// given status and JSON body.
func StaticJSONServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}
