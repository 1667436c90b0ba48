package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gall3ry/gall3ry/internal/imageproxy"
)

// ImageFetcher resolves a target URI to a streamable image.
type ImageFetcher interface {
	Fetch(ctx context.Context, target string) (*imageproxy.Result, []string, error)
}

// ImageHandler proxies NFT media through gateway fallbacks.
type ImageHandler struct {
	fetcher ImageFetcher
	logger  *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(fetcher ImageFetcher, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{fetcher: fetcher, logger: logger}
}

// Get handles GET /api/image?url=U.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "INVALID_URL", "url parameter is required")
		return
	}

	result, attempted, err := h.fetcher.Fetch(r.Context(), target)
	if err != nil {
		switch {
		case errors.Is(err, imageproxy.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, "INVALID_URL", "target is not a fetchable image URL")
		case errors.Is(err, imageproxy.ErrImageUnavailable):
			writeErrorDetails(w, http.StatusBadGateway, "IMAGE_UNAVAILABLE", "no candidate produced an image",
				map[string]any{"attempted": attempted})
		default:
			h.logger.Error("image proxy failed", "url", target, "error", err)
			writeError(w, http.StatusBadGateway, "IMAGE_UNAVAILABLE", "image fetch failed")
		}
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, result.Body); err != nil {
		// The status line is already on the wire; all we can do is log.
		h.logger.Debug("image stream interrupted", "url", result.SourceURL, "error", err)
	}
}
