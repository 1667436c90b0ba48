package farcaster

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gall3ry/gall3ry/internal/metrics"
	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

// Resolver resolves a handle against an ordered provider list.
// The first provider that answers is preferred for identity fields;
// later providers only fill gaps and extend the address union.
type Resolver struct {
	providers []Provider
	negCache  NegativeCache
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewResolver creates a Resolver. negCache may be nil to disable the
// not-found shield.
func NewResolver(providers []Provider, negCache NegativeCache, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{
		providers: providers,
		negCache:  negCache,
		logger:    logger,
		metrics:   recorder,
	}
}

// Resolve looks up a handle, trying providers in order. A provider
// answering "not found" is skipped; a transport failure is retried
// once with jitter before the provider is given up on. Once a usable
// profile exists the remaining providers are not consulted.
func (r *Resolver) Resolve(ctx context.Context, handle string) (*model.Profile, error) {
	normalized := model.NormalizeHandle(handle)
	if normalized == "" {
		return nil, ErrProfileUnresolved
	}

	if r.negCache != nil {
		cached, err := r.negCache.IsNegativelyCached(ctx, normalized)
		if err != nil {
			r.logger.Debug("negative cache check failed", "handle", normalized, "error", err)
		} else if cached {
			r.metrics.IncProfileNegativeCacheHit()
			return nil, ErrProfileUnresolved
		}
	}

	var merged *model.Profile
	allNotFound := true

	for _, provider := range r.providers {
		profile, err := r.lookupWithRetry(ctx, provider, normalized)
		if err != nil {
			if !errors.Is(err, upstream.ErrNotFound) {
				allNotFound = false
				r.logger.Warn("profile provider failed",
					"provider", provider.Name(),
					"handle", normalized,
					"error", err,
				)
			}
			r.metrics.IncProfileLookup(provider.Name(), "miss")
			continue
		}

		r.metrics.IncProfileLookup(provider.Name(), "hit")
		allNotFound = false
		merged = mergeProfiles(merged, profile)
		if merged.IsUsable() {
			return merged, nil
		}
	}

	if allNotFound && r.negCache != nil {
		if err := r.negCache.SetNegative(ctx, normalized); err != nil {
			r.logger.Debug("negative cache set failed", "handle", normalized, "error", err)
		}
	}

	return nil, ErrProfileUnresolved
}

// lookupWithRetry performs one lookup with a single jittered retry on
// transport-shaped errors. Not-found and unauthorized are definitive.
func (r *Resolver) lookupWithRetry(ctx context.Context, provider Provider, handle string) (*model.Profile, error) {
	profile, err := provider.Lookup(ctx, handle)
	if err == nil || !upstream.Retryable(err) {
		return profile, err
	}

	select {
	case <-ctx.Done():
		return nil, upstream.Classify(ctx.Err())
	case <-time.After(upstream.RetryDelay()):
	}

	return provider.Lookup(ctx, handle)
}

// mergeProfiles combines provider answers conservatively: the earlier
// provider keeps fid and handle, later ones fill empty fields and
// extend the connected-address union case-insensitively.
func mergeProfiles(base, next *model.Profile) *model.Profile {
	if base == nil {
		clone := *next
		clone.ConnectedAddresses = normalizeAddresses(next.ConnectedAddresses)
		return &clone
	}

	if base.DisplayName == "" {
		base.DisplayName = next.DisplayName
	}
	if base.ImageURL == "" {
		base.ImageURL = next.ImageURL
	}
	if base.CustodyAddress == "" {
		base.CustodyAddress = model.NormalizeAddress(next.CustodyAddress)
	}
	base.ConnectedAddresses = normalizeAddresses(
		append(base.ConnectedAddresses, next.ConnectedAddresses...),
	)
	return base
}
