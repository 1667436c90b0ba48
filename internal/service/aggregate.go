// Package service implements the NFT aggregation pipeline: profile
// resolution, concurrent fan-out across addresses and networks,
// normalization, deduplication, ordering and paging.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gall3ry/gall3ry/internal/imageurl"
	"github.com/gall3ry/gall3ry/internal/indexer"
	"github.com/gall3ry/gall3ry/internal/metrics"
	"github.com/gall3ry/gall3ry/internal/model"
)

// Ordering modes for aggregation pages.
const (
	OrderByKey    = "key"    // ascending (network, contract, token id)
	OrderByRecent = "recent" // provider-native recency, round-robin across legs
)

// DefaultPageSize is used when the client does not ask for a size.
const DefaultPageSize = 24

// ErrInvalidOrderBy is returned for an unrecognized orderBy value.
var ErrInvalidOrderBy = errors.New("invalid orderBy")

// ProfileResolver resolves a handle to a profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, handle string) (*model.Profile, error)
}

// IndexerClient fetches one provider page for a (network, owner) leg.
type IndexerClient interface {
	OwnedNFTs(ctx context.Context, network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error)
}

// AggregatorConfig carries the tunables of the fan-out.
type AggregatorConfig struct {
	Networks      []model.Network
	PerLegTimeout time.Duration
	Concurrency   int
	PageSizeMax   int
}

// Aggregator orchestrates the pipeline for one request at a time.
// It holds no mutable state between requests.
type Aggregator struct {
	resolver ProfileResolver
	indexer  IndexerClient
	rewriter *imageurl.Rewriter
	cfg      AggregatorConfig
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewAggregator creates an Aggregator. rewriter may be nil to use the
// default gateway configuration.
func NewAggregator(resolver ProfileResolver, indexerClient IndexerClient, rewriter *imageurl.Rewriter, cfg AggregatorConfig, logger *slog.Logger, recorder metrics.Recorder) *Aggregator {
	if cfg.PerLegTimeout <= 0 {
		cfg.PerLegTimeout = 15 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.PageSizeMax <= 0 {
		cfg.PageSizeMax = 100
	}
	if len(cfg.Networks) == 0 {
		cfg.Networks = model.AllNetworks()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if rewriter == nil {
		rewriter = imageurl.NewRewriter(nil, nil)
	}
	return &Aggregator{
		resolver: resolver,
		indexer:  indexerClient,
		rewriter: rewriter,
		cfg:      cfg,
		logger:   logger,
		metrics:  recorder,
	}
}

// AggregateInput is one aggregation request.
type AggregateInput struct {
	Handle   string
	Cursor   string
	PageSize int
	OrderBy  string
	Networks []model.Network
}

// leg is one (address, network) request inside the fan-out.
type leg struct {
	owner   string
	network model.Network
	key     string
	cursor  model.LegCursor
}

// legResult holds the outcome of one leg: the normalized records not
// yet consumed by earlier pages, in the consumption order of the
// request's orderBy mode.
type legResult struct {
	records    []*model.NFT
	newPageKey string
	err        error
}

// Aggregate runs the pipeline and returns one page. Provider-level
// failures never abort the call; only an unresolvable profile or
// invalid input does.
func (a *Aggregator) Aggregate(ctx context.Context, input AggregateInput) (*model.Page, error) {
	start := time.Now()
	defer func() {
		a.metrics.ObserveAggregateDuration(time.Since(start))
	}()

	orderBy := input.OrderBy
	if orderBy == "" {
		orderBy = OrderByKey
	}
	if orderBy != OrderByKey && orderBy != OrderByRecent {
		return nil, ErrInvalidOrderBy
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > a.cfg.PageSizeMax {
		pageSize = a.cfg.PageSizeMax
	}

	cursor, err := model.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, err
	}

	profile, err := a.resolver.Resolve(ctx, input.Handle)
	if err != nil {
		return nil, err
	}

	networks := input.Networks
	if len(networks) == 0 {
		networks = a.cfg.Networks
	}

	legs := buildLegs(profile.Addresses(), networks, cursor)
	results := a.fanOut(ctx, legs, pageSize, orderBy == OrderByRecent)

	page := a.assemblePage(legs, results, cursor, pageSize, orderBy)
	return page, nil
}

// buildLegs crosses addresses with networks, attaching each leg's
// cursor entry. Legs are ordered by cursor key so round-robin merging
// is deterministic.
func buildLegs(addresses []string, networks []model.Network, cursor model.Cursor) []leg {
	legs := make([]leg, 0, len(addresses)*len(networks))
	for _, addr := range addresses {
		for _, network := range networks {
			key := model.LegKey(addr, network)
			legs = append(legs, leg{
				owner:   addr,
				network: network,
				key:     key,
				cursor:  cursor[key],
			})
		}
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].key < legs[j].key })
	return legs
}

// fanOut issues all legs concurrently under the global concurrency cap
// with a per-leg deadline. Leg failures are captured, not propagated,
// so one bad provider cannot sink the page. Caller cancellation stops
// outstanding legs promptly through the shared context.
func (a *Aggregator) fanOut(ctx context.Context, legs []leg, pageSize int, byTransferTime bool) []legResult {
	results := make([]legResult, len(legs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)

	for i := range legs {
		i := i
		l := legs[i]
		// A drained leg is never re-fetched; its zero result keeps the
		// slot aligned for the merge.
		if l.cursor.Done {
			continue
		}
		g.Go(func() error {
			legCtx, cancel := context.WithTimeout(gctx, a.cfg.PerLegTimeout)
			defer cancel()

			page, err := a.indexer.OwnedNFTs(legCtx, l.network, l.owner, l.cursor.PageKey, pageSize, byTransferTime)
			if err != nil {
				a.metrics.IncAggregateLeg(l.network.Tag(), "failed")
				a.logger.Warn("fan-out leg failed",
					"network", l.network.Tag(),
					"owner", l.owner,
					"error", err,
				)
				results[i] = legResult{err: err}
				return nil
			}

			a.metrics.IncAggregateLeg(l.network.Tag(), "ok")
			results[i] = legResult{
				records:    a.normalizeLeg(page.Records, l, byTransferTime),
				newPageKey: page.PageKey,
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// normalizeLeg converts raw records, orders them in the leg's
// consumption order and skips records consumed by earlier pages.
// For key ordering the consumption order is the sorted order; for
// recent it is the provider's native order.
func (a *Aggregator) normalizeLeg(raws []indexer.RawNFT, l leg, byTransferTime bool) []*model.NFT {
	records := make([]*model.NFT, 0, len(raws))
	for i := range raws {
		if n := indexer.Normalize(&raws[i], indexer.ProviderName, l.network, l.owner, a.rewriter); n != nil {
			records = append(records, n)
		}
	}

	if !byTransferTime {
		sort.SliceStable(records, func(i, j int) bool {
			return keyLess(records[i].Key, records[j].Key)
		})
	}

	if l.cursor.Skip >= len(records) {
		return nil
	}
	return records[l.cursor.Skip:]
}

// keyLess orders canonical keys ascending by (network, contract, token id).
func keyLess(a, b model.NFTKey) bool {
	if a.Network != b.Network {
		return a.Network < b.Network
	}
	if a.ContractAddress != b.ContractAddress {
		return a.ContractAddress < b.ContractAddress
	}
	return a.TokenID < b.TokenID
}
