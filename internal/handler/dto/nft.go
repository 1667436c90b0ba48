// Package dto provides Data Transfer Objects for API responses.
package dto

import (
	"net/url"

	"github.com/gall3ry/gall3ry/internal/model"
)

// NFTResponse represents one token in API responses. ImageURL routes
// through the server-side image proxy so the browser never talks to
// flaky gateways directly; the raw candidates are still exposed.
type NFTResponse struct {
	Network           string             `json:"network"`
	ContractAddress   string             `json:"contract_address"`
	TokenID           string             `json:"token_id"`
	Title             string             `json:"title,omitempty"`
	Description       string             `json:"description,omitempty"`
	ImageURL          string             `json:"image_url"`
	ImageCandidates   []string           `json:"image_candidates"`
	Collection        CollectionResponse `json:"collection"`
	EstimatedValueETH *float64           `json:"estimated_value_eth,omitempty"`
	LastSaleETH       *float64           `json:"last_sale_eth,omitempty"`
	OwnerAddress      string             `json:"owner_address"`
	SourceProvider    string             `json:"source_provider"`
}

// CollectionResponse describes the token's contract.
type CollectionResponse struct {
	Address       string   `json:"address"`
	Name          string   `json:"name,omitempty"`
	FloorPriceETH *float64 `json:"floor_price_eth,omitempty"`
}

// PageResponse represents one aggregation page.
type PageResponse struct {
	Items             []NFTResponse     `json:"items"`
	NextCursor        string            `json:"next_cursor,omitempty"`
	Partial           bool              `json:"partial"`
	PerProviderErrors map[string]string `json:"per_provider_errors,omitempty"`
}

// ToNFTResponse converts a canonical NFT to its response shape.
func ToNFTResponse(n *model.NFT) NFTResponse {
	return NFTResponse{
		Network:           n.Key.Network.Tag(),
		ContractAddress:   n.Key.ContractAddress,
		TokenID:           n.Key.TokenID,
		Title:             n.Title,
		Description:       n.Description,
		ImageURL:          "/api/image?url=" + url.QueryEscape(n.ImageCandidates[0]),
		ImageCandidates:   n.ImageCandidates,
		Collection:        CollectionResponse(n.Collection),
		EstimatedValueETH: n.EstimatedValueETH,
		LastSaleETH:       n.LastSaleETH,
		OwnerAddress:      n.OwnerAddress,
		SourceProvider:    n.SourceProvider,
	}
}

// ToPageResponse converts an aggregation page to its response shape.
func ToPageResponse(page *model.Page) *PageResponse {
	items := make([]NFTResponse, len(page.Items))
	for i, n := range page.Items {
		items[i] = ToNFTResponse(n)
	}

	var errs map[string]string
	if len(page.PerProviderErrors) > 0 {
		errs = make(map[string]string, len(page.PerProviderErrors))
		for provider, kind := range page.PerProviderErrors {
			errs[provider] = string(kind)
		}
	}

	return &PageResponse{
		Items:             items,
		NextCursor:        page.NextCursor,
		Partial:           page.Partial,
		PerProviderErrors: errs,
	}
}
