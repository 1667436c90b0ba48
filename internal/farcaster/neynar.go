package farcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

// DefaultNeynarBaseURL is the production Neynar API endpoint.
const DefaultNeynarBaseURL = "https://api.neynar.com"

// neynarTimeout bounds a single profile lookup.
const neynarTimeout = 10 * time.Second

// NeynarClient is the primary Farcaster profile provider.
type NeynarClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewNeynarClient creates a Neynar profile client.
// baseURL may be empty to use production.
func NewNeynarClient(httpClient *http.Client, baseURL, apiKey string) *NeynarClient {
	if baseURL == "" {
		baseURL = DefaultNeynarBaseURL
	}
	return &NeynarClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Name returns the provider tag.
func (c *NeynarClient) Name() string { return "neynar" }

// neynarUserResponse is the wire shape of /v2/farcaster/user/by_username.
type neynarUserResponse struct {
	User struct {
		FID               int64  `json:"fid"`
		Username          string `json:"username"`
		DisplayName       string `json:"display_name"`
		PfpURL            string `json:"pfp_url"`
		CustodyAddress    string `json:"custody_address"`
		VerifiedAddresses struct {
			EthAddresses []string `json:"eth_addresses"`
		} `json:"verified_addresses"`
	} `json:"user"`
}

// Lookup fetches a profile by username. A missing API key degrades
// this provider immediately so the resolver can move to the fallback.
func (c *NeynarClient) Lookup(ctx context.Context, handle string) (*model.Profile, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("neynar: api key not configured: %w", upstream.ErrUnauthorized)
	}

	ctx, cancel := context.WithTimeout(ctx, neynarTimeout)
	defer cancel()

	endpoint := c.baseURL + "/v2/farcaster/user/by_username?username=" + url.QueryEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("neynar: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("User-Agent", upstream.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neynar: request failed: %w", upstream.Classify(err))
	}
	defer resp.Body.Close()

	if err := upstream.ClassifyStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("neynar: status %d: %w", resp.StatusCode, err)
	}

	var body neynarUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("neynar: decode response: %w", upstream.ErrUpstream)
	}
	if body.User.FID <= 0 {
		return nil, fmt.Errorf("neynar: empty user: %w", upstream.ErrNotFound)
	}

	return &model.Profile{
		FID:                body.User.FID,
		Handle:             model.NormalizeHandle(body.User.Username),
		DisplayName:        body.User.DisplayName,
		ImageURL:           body.User.PfpURL,
		CustodyAddress:     model.NormalizeAddress(body.User.CustodyAddress),
		ConnectedAddresses: normalizeAddresses(body.User.VerifiedAddresses.EthAddresses),
	}, nil
}

// normalizeAddresses lowercases and deduplicates an address list,
// preserving order.
func normalizeAddresses(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		normalized := model.NormalizeAddress(a)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
