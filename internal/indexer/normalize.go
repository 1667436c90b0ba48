package indexer

import (
	"encoding/json"
	"math"

	"github.com/spf13/cast"

	"github.com/gall3ry/gall3ry/internal/imageurl"
	"github.com/gall3ry/gall3ry/internal/model"
)

// Normalize converts one raw indexer record into the canonical shape.
// Returns nil when the record is unusable: empty key components or no
// derivable image candidate.
func Normalize(raw *RawNFT, provider string, network model.Network, owner string, rewriter *imageurl.Rewriter) *model.NFT {
	contract := model.NormalizeAddress(raw.Contract.Address)
	if contract == "" || raw.TokenID == "" {
		return nil
	}

	candidates := rewriter.Candidates(imageURI(raw))
	if len(candidates) == 0 {
		return nil
	}

	rawRef, _ := json.Marshal(raw)

	return &model.NFT{
		Key: model.NFTKey{
			Network:         network,
			ContractAddress: contract,
			TokenID:         raw.TokenID,
		},
		Title:           raw.Name,
		Description:     raw.Description,
		ImageCandidates: candidates,
		Collection: model.Collection{
			Address:       contract,
			Name:          raw.Contract.Name,
			FloorPriceETH: looseDecimal(raw.Contract.OpenSeaMetadata.FloorPrice),
		},
		EstimatedValueETH: looseDecimal(raw.EstimatedValue),
		LastSaleETH:       looseDecimal(raw.LastSale),
		OwnerAddress:      model.NormalizeAddress(owner),
		SourceProvider:    provider,
		RawRef:            rawRef,
	}
}

// imageURI picks the most reliable image source, stopping at the first
// non-empty string: the indexer's cached copy, its PNG conversion, its
// thumbnail, the original URL, then the raw on-chain metadata.
func imageURI(raw *RawNFT) string {
	for _, uri := range []string{
		raw.Image.CachedURL,
		raw.Image.PngURL,
		raw.Image.ThumbnailURL,
		raw.Image.OriginalURL,
	} {
		if uri != "" {
			return uri
		}
	}

	for _, field := range []string{"image", "image_url", "image_data"} {
		if v, ok := raw.Raw.Metadata[field]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// looseDecimal parses a string-or-number value. NaN, infinities and
// negatives are treated as absent.
func looseDecimal(v any) *float64 {
	if v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}
