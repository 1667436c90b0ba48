package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gall3ry/gall3ry/internal/farcaster"
	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/service"
)

// handlePattern matches a plausible Farcaster handle after
// normalization, including ENS-style names.
var handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// ProfileHandler handles profile lookups.
type ProfileHandler struct {
	resolver service.ProfileResolver
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(resolver service.ProfileResolver, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{resolver: resolver, logger: logger}
}

// Get handles GET /api/profile?handle=H.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	handle, ok := parseHandle(r.URL.Query().Get("handle"))
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_HANDLE", "handle is missing or malformed")
		return
	}

	profile, err := h.resolver.Resolve(r.Context(), handle)
	if err != nil {
		if errors.Is(err, farcaster.ErrProfileUnresolved) {
			writeError(w, http.StatusNotFound, "PROFILE_UNRESOLVED", "no provider could resolve this handle")
			return
		}
		h.logger.Error("profile resolution failed", "handle", handle, "error", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "profile lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// parseHandle normalizes and validates a user-supplied handle.
func parseHandle(raw string) (string, bool) {
	handle := model.NormalizeHandle(raw)
	if handle == "" || !handlePattern.MatchString(handle) {
		return "", false
	}
	return handle, true
}
