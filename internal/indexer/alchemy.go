// Package indexer fetches owned NFTs from the multi-chain indexer and
// normalizes its records into the canonical shape.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

// ProviderName tags canonical records produced by this client.
const ProviderName = "alchemy"

// alchemySubdomains maps each network to its API subdomain.
var alchemySubdomains = map[model.Network]string{
	model.NetworkEthereum: "eth-mainnet",
	model.NetworkPolygon:  "polygon-mainnet",
	model.NetworkOptimism: "opt-mainnet",
	model.NetworkArbitrum: "arb-mainnet",
	model.NetworkBase:     "base-mainnet",
}

// Client talks to the Alchemy NFT API v3, one endpoint per network.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoints  map[model.Network]string
}

// NewClient creates an indexer client against the production endpoints.
func NewClient(httpClient *http.Client, apiKey string) *Client {
	endpoints := make(map[model.Network]string, len(alchemySubdomains))
	for network, sub := range alchemySubdomains {
		endpoints[network] = fmt.Sprintf("https://%s.g.alchemy.com/nft/v3/%s", sub, apiKey)
	}
	return &Client{httpClient: httpClient, apiKey: apiKey, endpoints: endpoints}
}

// NewClientWithEndpoints creates a client with explicit per-network
// base URLs. Used by tests to point at a stub server.
func NewClientWithEndpoints(httpClient *http.Client, apiKey string, endpoints map[model.Network]string) *Client {
	return &Client{httpClient: httpClient, apiKey: apiKey, endpoints: endpoints}
}

// RawImage is the indexer's precomputed image block.
type RawImage struct {
	CachedURL    string `json:"cachedUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	PngURL       string `json:"pngUrl"`
	OriginalURL  string `json:"originalUrl"`
}

// RawContract is the indexer's contract block.
type RawContract struct {
	Address          string `json:"address"`
	Name             string `json:"name"`
	OpenSeaMetadata  struct {
		FloorPrice any `json:"floorPrice"`
	} `json:"openSeaMetadata"`
}

// RawNFT is one provider record from getNFTsForOwner.
// Loose fields stay untyped; the normalizer parses them tolerantly.
type RawNFT struct {
	Contract    RawContract `json:"contract"`
	TokenID     string      `json:"tokenId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       RawImage    `json:"image"`
	Raw         struct {
		Metadata map[string]any `json:"metadata"`
	} `json:"raw"`
	EstimatedValue any `json:"estimatedValue,omitempty"`
	LastSale       any `json:"lastSale,omitempty"`
}

// OwnedPage is one provider page for a single (network, owner) leg.
type OwnedPage struct {
	Records []RawNFT
	PageKey string
}

type ownedNFTsResponse struct {
	OwnedNFTs []RawNFT `json:"ownedNfts"`
	PageKey   string   `json:"pageKey"`
}

// OwnedNFTs fetches up to pageSize records for an owner on a network.
// pageKey resumes the provider's own pagination; byTransferTime asks
// the provider to order by most recent transfer instead of contract.
func (c *Client) OwnedNFTs(ctx context.Context, network model.Network, owner, pageKey string, pageSize int, byTransferTime bool) (*OwnedPage, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("indexer: api key not configured: %w", upstream.ErrUnauthorized)
	}
	base, ok := c.endpoints[network]
	if !ok {
		return nil, fmt.Errorf("indexer: no endpoint for network %q: %w", network, upstream.ErrUpstream)
	}

	params := url.Values{}
	params.Set("owner", owner)
	params.Set("withMetadata", "true")
	params.Set("pageSize", strconv.Itoa(pageSize))
	if pageKey != "" {
		params.Set("pageKey", pageKey)
	}
	if byTransferTime {
		params.Set("orderBy", "transferTime")
	}

	endpoint := base + "/getNFTsForOwner?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("indexer: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", upstream.UserAgent)
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok && requestID != "" {
		req.Header.Set(upstream.RequestIDHeader, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer: %s request failed: %w", network.Tag(), upstream.Classify(err))
	}
	defer resp.Body.Close()

	if err := upstream.ClassifyStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("indexer: %s status %d: %w", network.Tag(), resp.StatusCode, err)
	}

	var body ownedNFTsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("indexer: decode response: %w", upstream.ErrUpstream)
	}

	return &OwnedPage{Records: body.OwnedNFTs, PageKey: body.PageKey}, nil
}

type requestIDKey struct{}

// WithRequestID attaches an inbound request id for propagation to the
// indexer via the X-Request-ID header.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}
