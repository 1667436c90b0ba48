package indexer

import (
	"testing"

	"github.com/gall3ry/gall3ry/internal/imageurl"
	"github.com/gall3ry/gall3ry/internal/model"
)

func rawRecord(contract, tokenID, cachedURL string) *RawNFT {
	r := &RawNFT{TokenID: tokenID}
	r.Contract.Address = contract
	r.Image.CachedURL = cachedURL
	return r
}

func TestNormalize_Basic(t *testing.T) {
	t.Parallel()

	rewriter := imageurl.NewRewriter(nil, nil)
	raw := rawRecord("0xABC", "42", "https://cdn.example.com/42.png")
	raw.Name = "Fren #42"
	raw.Description = "a fren"
	raw.Contract.Name = "Frens"
	raw.Contract.OpenSeaMetadata.FloorPrice = 0.25
	raw.EstimatedValue = "1.5"

	got := Normalize(raw, ProviderName, model.NetworkEthereum, "0xOWNER", rewriter)
	if got == nil {
		t.Fatal("Normalize() returned nil for a usable record")
	}
	if got.Key.String() != "ethereum|0xabc|42" {
		t.Errorf("key = %q", got.Key.String())
	}
	if got.Title != "Fren #42" || got.Collection.Name != "Frens" {
		t.Errorf("unexpected title/collection: %q / %q", got.Title, got.Collection.Name)
	}
	if got.OwnerAddress != "0xowner" {
		t.Errorf("owner = %q, want lowercased", got.OwnerAddress)
	}
	if got.SourceProvider != ProviderName {
		t.Errorf("provider = %q", got.SourceProvider)
	}
	if got.Collection.FloorPriceETH == nil || *got.Collection.FloorPriceETH != 0.25 {
		t.Errorf("floor price = %v", got.Collection.FloorPriceETH)
	}
	if got.EstimatedValueETH == nil || *got.EstimatedValueETH != 1.5 {
		t.Errorf("estimated value = %v", got.EstimatedValueETH)
	}
	if len(got.RawRef) == 0 {
		t.Error("RawRef should carry the original record")
	}
}

func TestNormalize_DropsUnusableRecords(t *testing.T) {
	t.Parallel()

	rewriter := imageurl.NewRewriter(nil, nil)

	tests := []struct {
		name string
		raw  *RawNFT
	}{
		{"missing contract", rawRecord("", "1", "https://x.com/a.png")},
		{"missing token id", rawRecord("0xabc", "", "https://x.com/a.png")},
		{"no image source", rawRecord("0xabc", "1", "")},
		{"unusable image scheme", rawRecord("0xabc", "1", "ftp://x.com/a.png")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.raw, ProviderName, model.NetworkBase, "0xowner", rewriter); got != nil {
				t.Errorf("Normalize() = %+v, want nil", got)
			}
		})
	}
}

func TestImageURI_Priority(t *testing.T) {
	t.Parallel()

	raw := rawRecord("0xabc", "1", "")
	raw.Image.OriginalURL = "https://x.com/original.png"
	raw.Image.ThumbnailURL = "https://x.com/thumb.png"
	if got := imageURI(raw); got != "https://x.com/thumb.png" {
		t.Errorf("thumbnail should beat original, got %q", got)
	}

	raw.Image.PngURL = "https://x.com/conv.png"
	if got := imageURI(raw); got != "https://x.com/conv.png" {
		t.Errorf("png conversion should beat thumbnail, got %q", got)
	}

	raw.Image.CachedURL = "https://x.com/cached.png"
	if got := imageURI(raw); got != "https://x.com/cached.png" {
		t.Errorf("cached copy should win, got %q", got)
	}
}

func TestImageURI_MetadataFallback(t *testing.T) {
	t.Parallel()

	raw := rawRecord("0xabc", "1", "")
	raw.Raw.Metadata = map[string]any{"image_url": "ipfs://QmFOO"}
	if got := imageURI(raw); got != "ipfs://QmFOO" {
		t.Errorf("imageURI() = %q", got)
	}

	// Non-string metadata values are ignored.
	raw.Raw.Metadata = map[string]any{"image": 42}
	if got := imageURI(raw); got != "" {
		t.Errorf("imageURI() = %q, want empty", got)
	}
}

func TestLooseDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"nil", nil, nil},
		{"float", 1.25, f(1.25)},
		{"string number", "0.5", f(0.5)},
		{"integer", 3, f(3)},
		{"zero", 0.0, f(0)},
		{"negative", -1.0, nil},
		{"garbage string", "cheap", nil},
		{"object", map[string]any{"v": 1}, nil},
	}

	for _, tt := range tests {
		got := looseDecimal(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: looseDecimal(%v) = %v, want nil", tt.name, tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("%s: looseDecimal(%v) = %v, want %v", tt.name, tt.in, got, *tt.want)
		}
	}
}

func f(v float64) *float64 { return &v }
