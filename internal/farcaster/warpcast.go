package farcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

// DefaultWarpcastBaseURL is the public Warpcast API endpoint.
const DefaultWarpcastBaseURL = "https://api.warpcast.com"

const warpcastTimeout = 10 * time.Second

// WarpcastClient is the fallback profile provider. It needs no
// credentials, which keeps the resolver usable when the primary key
// is absent.
type WarpcastClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewWarpcastClient creates a Warpcast profile client.
func NewWarpcastClient(httpClient *http.Client, baseURL string) *WarpcastClient {
	if baseURL == "" {
		baseURL = DefaultWarpcastBaseURL
	}
	return &WarpcastClient{httpClient: httpClient, baseURL: baseURL}
}

// Name returns the provider tag.
func (c *WarpcastClient) Name() string { return "warpcast" }

type warpcastUserResponse struct {
	Result struct {
		User struct {
			FID         int64  `json:"fid"`
			Username    string `json:"username"`
			DisplayName string `json:"displayName"`
			Pfp         struct {
				URL string `json:"url"`
			} `json:"pfp"`
			CustodyAddress string `json:"custodyAddress"`
		} `json:"user"`
	} `json:"result"`
}

type warpcastVerificationsResponse struct {
	Result struct {
		Verifications []struct {
			Address string `json:"address"`
		} `json:"verifications"`
	} `json:"result"`
}

// Lookup fetches the user record and then its verified addresses.
// A failure on the verifications call is tolerated: the profile is
// still usable through its custody address.
func (c *WarpcastClient) Lookup(ctx context.Context, handle string) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, warpcastTimeout)
	defer cancel()

	var body warpcastUserResponse
	endpoint := c.baseURL + "/v2/user-by-username?username=" + url.QueryEscape(handle)
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Result.User.FID <= 0 {
		return nil, fmt.Errorf("warpcast: empty user: %w", upstream.ErrNotFound)
	}

	profile := &model.Profile{
		FID:            body.Result.User.FID,
		Handle:         model.NormalizeHandle(body.Result.User.Username),
		DisplayName:    body.Result.User.DisplayName,
		ImageURL:       body.Result.User.Pfp.URL,
		CustodyAddress: model.NormalizeAddress(body.Result.User.CustodyAddress),
	}

	var verifications warpcastVerificationsResponse
	verifyEndpoint := c.baseURL + "/v2/verifications?fid=" + strconv.FormatInt(profile.FID, 10)
	if err := c.getJSON(ctx, verifyEndpoint, &verifications); err == nil {
		addrs := make([]string, 0, len(verifications.Result.Verifications))
		for _, v := range verifications.Result.Verifications {
			addrs = append(addrs, v.Address)
		}
		profile.ConnectedAddresses = normalizeAddresses(addrs)
	}

	return profile, nil
}

func (c *WarpcastClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("warpcast: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", upstream.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("warpcast: request failed: %w", upstream.Classify(err))
	}
	defer resp.Body.Close()

	if err := upstream.ClassifyStatus(resp.StatusCode); err != nil {
		return fmt.Errorf("warpcast: status %d: %w", resp.StatusCode, err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("warpcast: decode response: %w", upstream.ErrUpstream)
	}
	return nil
}
