package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gall3ry/gall3ry/internal/farcaster"
	"github.com/gall3ry/gall3ry/internal/indexer"
	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/testutil"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

type stubResolver struct {
	profile *model.Profile
	err     error
}

func (s *stubResolver) Resolve(ctx context.Context, handle string) (*model.Profile, error) {
	return s.profile, s.err
}

// stubIndexer answers legs through a function. The aggregator calls it
// concurrently, so fn must only read shared data.
type stubIndexer struct {
	fn func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error)
}

func (s *stubIndexer) OwnedNFTs(ctx context.Context, network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
	return s.fn(network, owner, pageKey, pageSize, byTransferTime)
}

func rawNFT(contract, tokenID string) indexer.RawNFT {
	r := indexer.RawNFT{TokenID: tokenID}
	r.Contract.Address = contract
	r.Image.CachedURL = "https://cdn.example.com/" + contract + "/" + tokenID + ".png"
	return r
}

func newTestAggregator(resolver ProfileResolver, idx IndexerClient, networks []model.Network) *Aggregator {
	return NewAggregator(resolver, idx, nil, AggregatorConfig{
		Networks: networks,
	}, testutil.DiscardLogger(), nil)
}

func singleAddressProfile() *model.Profile {
	return &model.Profile{FID: 3, Handle: "dwr", CustodyAddress: "0xaaa"}
}

func TestAggregate_SortedByKey(t *testing.T) {
	t.Parallel()

	byNetwork := map[model.Network][]indexer.RawNFT{
		model.NetworkEthereum: {rawNFT("0xbbb", "2"), rawNFT("0xbbb", "1")},
		model.NetworkPolygon:  {rawNFT("0xaaa", "9")},
	}
	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		return &indexer.OwnedPage{Records: byNetwork[network]}, nil
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum, model.NetworkPolygon})

	page, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr"})
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	want := []string{
		"ethereum|0xbbb|1",
		"ethereum|0xbbb|2",
		"polygon|0xaaa|9",
	}
	if len(page.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(page.Items), len(want))
	}
	for i, k := range want {
		if page.Items[i].Key.String() != k {
			t.Errorf("item %d = %q, want %q", i, page.Items[i].Key.String(), k)
		}
	}
	if page.Partial {
		t.Error("page should not be partial")
	}
	if page.NextCursor != "" {
		t.Errorf("all legs exhausted, cursor should be empty, got %q", page.NextCursor)
	}
}

func TestAggregate_DedupesAcrossAddresses(t *testing.T) {
	t.Parallel()

	// The same token shows up under both the custody and a connected
	// address; it must be emitted once.
	profile := &model.Profile{
		FID:                3,
		Handle:             "dwr",
		CustodyAddress:     "0xaaa",
		ConnectedAddresses: []string{"0xbbb"},
	}
	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		return &indexer.OwnedPage{Records: []indexer.RawNFT{rawNFT("0xCCC", "7")}}, nil
	}}

	a := newTestAggregator(&stubResolver{profile: profile}, idx, []model.Network{model.NetworkEthereum})

	page, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr"})
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %d, want 1 after dedupe", len(page.Items))
	}
	if page.Items[0].Key.String() != "ethereum|0xccc|7" {
		t.Errorf("key = %q", page.Items[0].Key.String())
	}
}

func TestAggregate_PartialFailure(t *testing.T) {
	t.Parallel()

	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		if network == model.NetworkPolygon {
			return nil, fmt.Errorf("indexer: polygon: %w", upstream.ErrTimeout)
		}
		return &indexer.OwnedPage{Records: []indexer.RawNFT{rawNFT("0xbbb", "1")}}, nil
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum, model.NetworkPolygon})

	page, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr"})
	if err != nil {
		t.Fatalf("a leg failure must not fail the call: %v", err)
	}
	if !page.Partial {
		t.Error("page should be marked partial")
	}
	if len(page.Items) != 1 {
		t.Errorf("items = %d, want the surviving leg's record", len(page.Items))
	}
	if kind := page.PerProviderErrors["polygon-indexer"]; kind != model.ErrorKindTimeout {
		t.Errorf("polygon-indexer error kind = %q, want %q", kind, model.ErrorKindTimeout)
	}
}

func TestAggregate_AllLegsFail(t *testing.T) {
	t.Parallel()

	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		return nil, fmt.Errorf("indexer: down: %w", upstream.ErrUpstream)
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum, model.NetworkBase})

	page, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr"})
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if !page.Partial || len(page.Items) != 0 {
		t.Errorf("want empty partial page, got partial=%v items=%d", page.Partial, len(page.Items))
	}
	for _, key := range []string{"ethereum-indexer", "base-indexer"} {
		if kind := page.PerProviderErrors[key]; kind != model.ErrorKindUpstream {
			t.Errorf("%s = %q, want %q", key, kind, model.ErrorKindUpstream)
		}
	}
}

func TestAggregate_MonotonePaging(t *testing.T) {
	t.Parallel()

	byNetwork := map[model.Network][]indexer.RawNFT{
		model.NetworkEthereum: {rawNFT("0xaaa", "1"), rawNFT("0xaaa", "2"), rawNFT("0xbbb", "1")},
		model.NetworkPolygon:  {rawNFT("0xccc", "5"), rawNFT("0xccc", "6")},
	}
	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		return &indexer.OwnedPage{Records: byNetwork[network]}, nil
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum, model.NetworkPolygon})

	seen := make(map[string]bool)
	var order []string
	cursor := ""
	for i := 0; i < 10; i++ {
		page, err := a.Aggregate(context.Background(), AggregateInput{
			Handle:   "dwr",
			Cursor:   cursor,
			PageSize: 1,
		})
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		for _, item := range page.Items {
			k := item.Key.String()
			if seen[k] {
				t.Fatalf("key %q appeared on two pages", k)
			}
			seen[k] = true
			order = append(order, k)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(order) != 5 {
		t.Fatalf("collected %d records across pages, want 5: %v", len(order), order)
	}
	for i := 1; i < len(order); i++ {
		if order[i] <= order[i-1] {
			t.Errorf("keys out of order across pages: %q then %q", order[i-1], order[i])
		}
	}
}

func TestAggregate_ShortLegDrainsBeforeLong(t *testing.T) {
	t.Parallel()

	// The ethereum leg exhausts on the first page; its records sort
	// first, so a leg that restarted instead of staying drained would
	// re-emit them on every page and starve the polygon leg.
	byNetwork := map[model.Network][]indexer.RawNFT{
		model.NetworkEthereum: {rawNFT("0xaaa", "1")},
		model.NetworkPolygon:  {rawNFT("0xbbb", "1"), rawNFT("0xbbb", "2"), rawNFT("0xbbb", "3")},
	}
	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		return &indexer.OwnedPage{Records: byNetwork[network]}, nil
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum, model.NetworkPolygon})

	seen := make(map[string]int)
	cursor := ""
	pages := 0
	for i := 0; i < 10; i++ {
		page, err := a.Aggregate(context.Background(), AggregateInput{
			Handle:   "dwr",
			Cursor:   cursor,
			PageSize: 1,
		})
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		pages++
		for _, item := range page.Items {
			seen[item.Key.String()]++
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(seen) != 4 {
		t.Fatalf("distinct keys = %d, want 4: %v", len(seen), seen)
	}
	for k, n := range seen {
		if n != 1 {
			t.Errorf("key %q emitted %d times across pages", k, n)
		}
	}
	if pages != 4 {
		t.Errorf("pages = %d, want 4", pages)
	}
}

func TestAggregate_DrainedLegNotRefetched(t *testing.T) {
	t.Parallel()

	byNetwork := map[model.Network][]indexer.RawNFT{
		model.NetworkEthereum: {rawNFT("0xaaa", "1")},
		model.NetworkPolygon:  {rawNFT("0xbbb", "1"), rawNFT("0xbbb", "2")},
	}
	var mu sync.Mutex
	calls := make(map[model.Network]int)
	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		mu.Lock()
		calls[network]++
		mu.Unlock()
		return &indexer.OwnedPage{Records: byNetwork[network]}, nil
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum, model.NetworkPolygon})

	first, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", PageSize: 1})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if _, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", PageSize: 1, Cursor: first.NextCursor}); err != nil {
		t.Fatalf("second page: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls[model.NetworkEthereum] != 1 {
		t.Errorf("ethereum calls = %d; a drained leg must not be fetched again", calls[model.NetworkEthereum])
	}
	if calls[model.NetworkPolygon] != 2 {
		t.Errorf("polygon calls = %d, want one per page", calls[model.NetworkPolygon])
	}
}

func TestAggregate_ProviderPagination(t *testing.T) {
	t.Parallel()

	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		switch pageKey {
		case "":
			return &indexer.OwnedPage{
				Records: []indexer.RawNFT{rawNFT("0xaaa", "1"), rawNFT("0xaaa", "2")},
				PageKey: "page-2",
			}, nil
		case "page-2":
			return &indexer.OwnedPage{
				Records: []indexer.RawNFT{rawNFT("0xaaa", "3")},
			}, nil
		default:
			return nil, fmt.Errorf("unexpected pageKey %q", pageKey)
		}
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum})

	first, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", PageSize: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 2 || first.NextCursor == "" {
		t.Fatalf("first page items=%d cursor=%q", len(first.Items), first.NextCursor)
	}

	second, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", PageSize: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("second page items = %d, want 1", len(second.Items))
	}
	if second.Items[0].Key.TokenID != "3" {
		t.Errorf("second page token = %q, want 3", second.Items[0].Key.TokenID)
	}
	if second.NextCursor != "" {
		t.Errorf("exhausted legs should end the cursor chain, got %q", second.NextCursor)
	}
}

func TestAggregate_RecentRoundRobin(t *testing.T) {
	t.Parallel()

	byNetwork := map[model.Network][]indexer.RawNFT{
		model.NetworkEthereum: {rawNFT("0xe", "1"), rawNFT("0xe", "2")},
		model.NetworkPolygon:  {rawNFT("0xp", "1"), rawNFT("0xp", "2")},
	}
	var gotByTransferTime atomic.Bool
	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		gotByTransferTime.Store(byTransferTime)
		return &indexer.OwnedPage{Records: byNetwork[network]}, nil
	}}

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, idx,
		[]model.Network{model.NetworkEthereum, model.NetworkPolygon})

	page, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", OrderBy: OrderByRecent})
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if !gotByTransferTime.Load() {
		t.Error("recent ordering should request transfer-time ordering from the provider")
	}

	want := []string{
		"ethereum|0xe|1",
		"polygon|0xp|1",
		"ethereum|0xe|2",
		"polygon|0xp|2",
	}
	if len(page.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(page.Items), len(want))
	}
	for i, k := range want {
		if page.Items[i].Key.String() != k {
			t.Errorf("item %d = %q, want %q (round-robin interleave)", i, page.Items[i].Key.String(), k)
		}
	}
}

func TestAggregate_InvalidInput(t *testing.T) {
	t.Parallel()

	a := newTestAggregator(&stubResolver{profile: singleAddressProfile()}, &stubIndexer{}, nil)

	if _, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", OrderBy: "floor"}); !errors.Is(err, ErrInvalidOrderBy) {
		t.Errorf("bad orderBy: got %v", err)
	}
	if _, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", Cursor: "%%%"}); !errors.Is(err, model.ErrInvalidCursor) {
		t.Errorf("bad cursor: got %v", err)
	}
}

func TestAggregate_UnresolvedProfile(t *testing.T) {
	t.Parallel()

	a := newTestAggregator(&stubResolver{err: farcaster.ErrProfileUnresolved}, &stubIndexer{}, nil)

	if _, err := a.Aggregate(context.Background(), AggregateInput{Handle: "nobody"}); !errors.Is(err, farcaster.ErrProfileUnresolved) {
		t.Errorf("expected ErrProfileUnresolved, got %v", err)
	}
}

func TestAggregate_PageSizeClamped(t *testing.T) {
	t.Parallel()

	var gotPageSize int
	idx := &stubIndexer{fn: func(network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*indexer.OwnedPage, error) {
		gotPageSize = pageSize
		return &indexer.OwnedPage{}, nil
	}}

	a := NewAggregator(&stubResolver{profile: singleAddressProfile()}, idx, nil, AggregatorConfig{
		Networks:    []model.Network{model.NetworkEthereum},
		PageSizeMax: 50,
	}, testutil.DiscardLogger(), nil)

	if _, err := a.Aggregate(context.Background(), AggregateInput{Handle: "dwr", PageSize: 500}); err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if gotPageSize != 50 {
		t.Errorf("page size sent to provider = %d, want clamped 50", gotPageSize)
	}
}
