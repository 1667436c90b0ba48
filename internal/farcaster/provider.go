// Package farcaster resolves Farcaster handles to profiles with linked
// on-chain addresses, using an ordered list of upstream providers.
package farcaster

import (
	"context"
	"errors"

	"github.com/gall3ry/gall3ry/internal/model"
)

// ErrProfileUnresolved is returned when no provider yielded a usable
// profile for a handle.
var ErrProfileUnresolved = errors.New("profile unresolved")

// Provider looks a handle up on a single upstream.
// Implementations return upstream.ErrNotFound when the handle does not
// exist there; that is a definitive answer, not a failure.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, handle string) (*model.Profile, error)
}

// NegativeCache shields upstream providers from repeated lookups of
// handles recently confirmed missing. Implementations bound their size
// and expire entries within 60 seconds.
type NegativeCache interface {
	IsNegativelyCached(ctx context.Context, handle string) (bool, error)
	SetNegative(ctx context.Context, handle string) error
}
