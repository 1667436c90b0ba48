package imageproxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gall3ry/gall3ry/internal/imageurl"
	"github.com/gall3ry/gall3ry/internal/testutil"
)

// stubTransport routes fetcher requests to canned responses so tests
// can exercise multi-gateway fallback without real hosts.
type stubTransport struct {
	mu      sync.Mutex
	calls   []string
	respond func(url string) *http.Response
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.URL.String())
	s.mu.Unlock()
	return s.respond(req.URL.String()), nil
}

func response(status int, contentType, body string) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestFetcher(transport *stubTransport, gateways []string) *Fetcher {
	client := &http.Client{Transport: transport}
	rewriter := imageurl.NewRewriter(gateways, nil)
	return NewFetcher(client, rewriter, 0, testutil.DiscardLogger(), nil)
}

func TestFetch_FirstCandidateWins(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{respond: func(url string) *http.Response {
		return response(http.StatusOK, "image/png", "\x89PNG\r\n\x1a\npng-bytes")
	}}
	f := newTestFetcher(transport, []string{"one.test", "two.test"})

	result, attempted, err := f.Fetch(context.Background(), "ipfs://QmX")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	defer result.Body.Close()

	if result.ContentType != "image/png" {
		t.Errorf("content type = %q", result.ContentType)
	}
	if result.SourceURL != "https://one.test/ipfs/QmX" {
		t.Errorf("source = %q", result.SourceURL)
	}
	if len(attempted) != 1 {
		t.Errorf("attempted = %v, want only the first candidate", attempted)
	}
}

func TestFetch_FallsBackToNextCandidate(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{respond: func(url string) *http.Response {
		if strings.Contains(url, "one.test") {
			return response(http.StatusBadGateway, "", "")
		}
		return response(http.StatusOK, "image/gif", "GIF89a...")
	}}
	f := newTestFetcher(transport, []string{"one.test", "two.test"})

	result, attempted, err := f.Fetch(context.Background(), "ipfs://QmX")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	defer result.Body.Close()

	if result.SourceURL != "https://two.test/ipfs/QmX" {
		t.Errorf("source = %q, want the second gateway", result.SourceURL)
	}
	want := []string{"https://one.test/ipfs/QmX", "https://two.test/ipfs/QmX"}
	if len(attempted) != 2 || attempted[0] != want[0] || attempted[1] != want[1] {
		t.Errorf("attempted = %v, want %v", attempted, want)
	}
}

func TestFetch_SniffsOctetStream(t *testing.T) {
	t.Parallel()

	body := "\x89PNG\r\n\x1a\n" + strings.Repeat("x", 64)
	transport := &stubTransport{respond: func(url string) *http.Response {
		return response(http.StatusOK, "application/octet-stream", body)
	}}
	f := newTestFetcher(transport, []string{"one.test"})

	result, _, err := f.Fetch(context.Background(), "ipfs://QmX")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	defer result.Body.Close()

	if result.ContentType != "image/png" {
		t.Errorf("sniffed content type = %q, want image/png", result.ContentType)
	}

	// The sniffed prefix must still be part of the streamed body.
	got, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(got) != body {
		t.Errorf("body lost bytes: got %d, want %d", len(got), len(body))
	}
}

func TestFetch_RejectsNonImage(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{respond: func(url string) *http.Response {
		return response(http.StatusOK, "text/html", "<!DOCTYPE html><html></html>")
	}}
	f := newTestFetcher(transport, []string{"one.test", "two.test"})

	_, attempted, err := f.Fetch(context.Background(), "ipfs://QmX")
	if !errors.Is(err, ErrImageUnavailable) {
		t.Fatalf("expected ErrImageUnavailable, got %v", err)
	}
	if len(attempted) != 2 {
		t.Errorf("attempted = %v, want both candidates tried", attempted)
	}
}

func TestFetch_InvalidTarget(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(&stubTransport{}, nil)

	tests := []string{
		"",
		"ftp://example.com/x.png",
		"data:image/png;base64,iVBOR", // browser-usable, not proxyable
	}
	for _, target := range tests {
		if _, _, err := f.Fetch(context.Background(), target); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("Fetch(%q): expected ErrInvalidTarget, got %v", target, err)
		}
	}
}

func TestFetch_SlowBodyNotTruncated(t *testing.T) {
	t.Parallel()

	// Headers arrive immediately but the body takes three times the
	// per-candidate deadline to finish; once accepted, the stream must
	// survive past the deadline.
	head := "\x89PNG\r\n\x1a\n"
	tail := strings.Repeat("x", 32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, head)
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		time.Sleep(150 * time.Millisecond)
		_, _ = io.WriteString(w, tail)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), imageurl.NewRewriter(nil, nil), 50*time.Millisecond, testutil.DiscardLogger(), nil)

	result, _, err := f.Fetch(context.Background(), srv.URL+"/slow.png")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	defer result.Body.Close()

	got, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("stream truncated: %v", err)
	}
	if string(got) != head+tail {
		t.Errorf("body = %d bytes, want %d", len(got), len(head)+len(tail))
	}
}

func TestFetch_HeaderDeadlineEnforced(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "\x89PNG\r\n\x1a\n")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), imageurl.NewRewriter(nil, nil), 40*time.Millisecond, testutil.DiscardLogger(), nil)

	start := time.Now()
	_, _, err := f.Fetch(context.Background(), srv.URL+"/stalled.png")
	if !errors.Is(err, ErrImageUnavailable) {
		t.Fatalf("expected ErrImageUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("deadline not enforced before headers: took %v", elapsed)
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{respond: func(url string) *http.Response {
		return response(http.StatusOK, "image/png", "png")
	}}
	f := newTestFetcher(transport, []string{"one.test"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := f.Fetch(ctx, "ipfs://QmX"); !errors.Is(err, ErrImageUnavailable) {
		t.Errorf("canceled context should exhaust without fetching, got %v", err)
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.calls) != 0 {
		t.Errorf("no requests should be issued after cancellation, got %v", transport.calls)
	}
}
