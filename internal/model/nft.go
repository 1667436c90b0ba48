package model

import (
	"encoding/json"
	"strings"
)

// NFTKey identifies a token uniquely across providers.
// Contract addresses compare case-insensitively; token ids are
// case-sensitive because some collections use non-numeric ids.
type NFTKey struct {
	Network         Network `json:"network"`
	ContractAddress string  `json:"contract_address"`
	TokenID         string  `json:"token_id"`
}

// String renders the key in its canonical comparable form.
func (k NFTKey) String() string {
	return k.Network.Tag() + "|" + strings.ToLower(k.ContractAddress) + "|" + k.TokenID
}

// Collection describes the contract a token belongs to.
type Collection struct {
	Address       string   `json:"address"`
	Name          string   `json:"name,omitempty"`
	FloorPriceETH *float64 `json:"floor_price_eth,omitempty"`
}

// NFT is the canonical, provider-agnostic token record.
type NFT struct {
	Key               NFTKey          `json:"key"`
	Title             string          `json:"title,omitempty"`
	Description       string          `json:"description,omitempty"`
	ImageCandidates   []string        `json:"image_candidates"`
	Collection        Collection      `json:"collection"`
	EstimatedValueETH *float64        `json:"estimated_value_eth,omitempty"`
	LastSaleETH       *float64        `json:"last_sale_eth,omitempty"`
	OwnerAddress      string          `json:"owner_address"`
	SourceProvider    string          `json:"source_provider"`
	RawRef            json.RawMessage `json:"-"`
}
