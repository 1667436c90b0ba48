package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gall3ry/gall3ry/internal/farcaster"
	"github.com/gall3ry/gall3ry/internal/handler/dto"
	"github.com/gall3ry/gall3ry/internal/indexer"
	"github.com/gall3ry/gall3ry/internal/middleware"
	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/service"
)

// Aggregator runs one aggregation request.
type Aggregator interface {
	Aggregate(ctx context.Context, input service.AggregateInput) (*model.Page, error)
}

// NFTsHandler handles aggregated NFT listing.
type NFTsHandler struct {
	aggregator Aggregator
	logger     *slog.Logger
}

// NewNFTsHandler creates a new NFTsHandler.
func NewNFTsHandler(aggregator Aggregator, logger *slog.Logger) *NFTsHandler {
	return &NFTsHandler{aggregator: aggregator, logger: logger}
}

// List handles GET /api/nfts?handle=H&cursor=C&pageSize=N&orderBy=...&networks=...
func (h *NFTsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	handle, ok := parseHandle(query.Get("handle"))
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_HANDLE", "handle is missing or malformed")
		return
	}

	input := service.AggregateInput{
		Handle:  handle,
		Cursor:  query.Get("cursor"),
		OrderBy: query.Get("orderBy"),
	}

	if raw := query.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_PAGE_SIZE", "pageSize must be a positive integer")
			return
		}
		input.PageSize = size
	}

	if raw := query.Get("networks"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			network, ok := model.ParseNetwork(tag)
			if !ok {
				writeError(w, http.StatusBadRequest, "UNKNOWN_NETWORK", "unknown network tag: "+strings.TrimSpace(tag))
				return
			}
			input.Networks = append(input.Networks, network)
		}
	}

	ctx := indexer.WithRequestID(r.Context(), middleware.GetRequestID(r.Context()))

	page, err := h.aggregator.Aggregate(ctx, input)
	if err != nil {
		h.handleAggregateError(w, handle, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPageResponse(page))
}

// handleAggregateError maps pipeline errors to HTTP responses.
func (h *NFTsHandler) handleAggregateError(w http.ResponseWriter, handle string, err error) {
	switch {
	case errors.Is(err, farcaster.ErrProfileUnresolved):
		writeError(w, http.StatusNotFound, "PROFILE_UNRESOLVED", "no provider could resolve this handle")
	case errors.Is(err, model.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "cursor is malformed")
	case errors.Is(err, service.ErrInvalidOrderBy):
		writeError(w, http.StatusBadRequest, "INVALID_ORDER_BY", "orderBy must be \"key\" or \"recent\"")
	default:
		h.logger.Error("aggregation failed", "handle", handle, "error", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "aggregation failed")
	}
}
