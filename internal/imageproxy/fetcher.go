// Package imageproxy fetches NFT media through the rewritten gateway
// candidates and streams the first acceptable image response.
package imageproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gall3ry/gall3ry/internal/imageurl"
	"github.com/gall3ry/gall3ry/internal/metrics"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

// Errors surfaced by the fetcher.
var (
	// ErrInvalidTarget marks an input the rewriter cannot turn into
	// fetchable HTTP candidates.
	ErrInvalidTarget = errors.New("invalid image target")
	// ErrImageUnavailable marks exhaustion of every candidate.
	ErrImageUnavailable = errors.New("image unavailable")
)

// Result is a successfully fetched image ready to stream.
// Body must be closed by the caller.
type Result struct {
	Body        io.ReadCloser
	ContentType string
	SourceURL   string
}

// Fetcher tries rewritten candidates in order until one yields a real
// image. A candidate gets no retries; failure only advances to the
// next candidate.
type Fetcher struct {
	httpClient          *http.Client
	rewriter            *imageurl.Rewriter
	perCandidateTimeout time.Duration
	logger              *slog.Logger
	metrics             metrics.Recorder
}

// NewFetcher creates a Fetcher.
func NewFetcher(httpClient *http.Client, rewriter *imageurl.Rewriter, perCandidateTimeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Fetcher {
	if perCandidateTimeout <= 0 {
		perCandidateTimeout = 8 * time.Second
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Fetcher{
		httpClient:          httpClient,
		rewriter:            rewriter,
		perCandidateTimeout: perCandidateTimeout,
		logger:              logger,
		metrics:             recorder,
	}
}

// Fetch resolves the target URI to candidates and returns the first
// acceptable image along with the list of attempted URLs.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Result, []string, error) {
	start := time.Now()
	defer func() {
		f.metrics.ObserveImageProxyDuration(time.Since(start))
	}()

	candidates := httpCandidates(f.rewriter.Candidates(target))
	if len(candidates) == 0 {
		return nil, nil, ErrInvalidTarget
	}

	attempted := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		attempted = append(attempted, candidate)

		result, err := f.tryCandidate(ctx, candidate)
		if err != nil {
			f.logger.Debug("image candidate failed", "url", candidate, "error", err)
			continue
		}

		f.metrics.IncImageProxyFetch("ok")
		return result, attempted, nil
	}

	f.metrics.IncImageProxyFetch("failed")
	return nil, attempted, ErrImageUnavailable
}

// tryCandidate fetches one URL and accepts it iff the upstream
// answered 2xx with an image content type, or with an octet-stream
// body whose first bytes carry an image magic number.
//
// The per-candidate deadline covers connect, headers and the sniff.
// An accepted body may legitimately stream for longer than that, so
// the deadline is a stoppable timer rather than a context deadline,
// disarmed once the candidate is accepted. Caller cancellation still
// propagates through the parent context.
func (f *Fetcher) tryCandidate(ctx context.Context, candidate string) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)

	var timedOut atomic.Bool
	timer := time.AfterFunc(f.perCandidateTimeout, func() {
		timedOut.Store(true)
		cancel()
	})

	fail := func(err error) error {
		timer.Stop()
		cancel()
		if timedOut.Load() {
			return fmt.Errorf("candidate deadline exceeded: %w", upstream.ErrTimeout)
		}
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return nil, fail(err)
	}
	req.Header.Set("User-Agent", upstream.UserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fail(upstream.Classify(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fail(fmt.Errorf("status %d: %w", resp.StatusCode, upstream.ErrUpstream))
	}

	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])

	if strings.HasPrefix(contentType, "image/") {
		timer.Stop()
		return &Result{
			Body:        cancelOnClose{resp.Body, cancel},
			ContentType: contentType,
			SourceURL:   candidate,
		}, nil
	}

	if contentType == "" || contentType == "application/octet-stream" {
		prefix := make([]byte, SniffLen)
		n, _ := io.ReadFull(resp.Body, prefix)
		if sniffed, ok := DetectImage(prefix[:n]); ok {
			timer.Stop()
			body := struct {
				io.Reader
				io.Closer
			}{
				Reader: io.MultiReader(strings.NewReader(string(prefix[:n])), resp.Body),
				Closer: resp.Body,
			}
			return &Result{
				Body:        cancelOnClose{body, cancel},
				ContentType: sniffed,
				SourceURL:   candidate,
			}, nil
		}
	}

	resp.Body.Close()
	return nil, fail(fmt.Errorf("content type %q is not an image: %w", contentType, upstream.ErrUpstream))
}

// httpCandidates filters candidates the proxy can fetch itself.
// A data: URL is usable directly by the browser, not through us.
func httpCandidates(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(c, "http://") || strings.HasPrefix(c, "https://") {
			out = append(out, c)
		}
	}
	return out
}

// cancelOnClose releases a candidate's request context once the
// caller finishes streaming the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
