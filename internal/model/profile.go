package model

import "strings"

// Profile is a Farcaster user together with their linked on-chain addresses.
type Profile struct {
	FID                int64    `json:"fid"`
	Handle             string   `json:"handle"`
	DisplayName        string   `json:"display_name,omitempty"`
	ImageURL           string   `json:"image_url,omitempty"`
	CustodyAddress     string   `json:"custody_address,omitempty"`
	ConnectedAddresses []string `json:"connected_addresses"`
}

// IsUsable reports whether the profile carries enough information to
// drive an NFT lookup: a positive fid and at least one address.
func (p *Profile) IsUsable() bool {
	if p == nil || p.FID <= 0 {
		return false
	}
	return p.CustodyAddress != "" || len(p.ConnectedAddresses) > 0
}

// Addresses returns the custody and connected addresses as a single
// lowercase list, deduplicated case-insensitively, custody first.
func (p *Profile) Addresses() []string {
	seen := make(map[string]struct{}, len(p.ConnectedAddresses)+1)
	out := make([]string, 0, len(p.ConnectedAddresses)+1)

	add := func(addr string) {
		normalized := NormalizeAddress(addr)
		if normalized == "" {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}

	add(p.CustodyAddress)
	for _, addr := range p.ConnectedAddresses {
		add(addr)
	}
	return out
}

// NormalizeHandle canonicalizes a user-supplied handle for lookup:
// trimmed, lowercased, leading @ removed.
func NormalizeHandle(handle string) string {
	h := strings.ToLower(strings.TrimSpace(handle))
	return strings.TrimPrefix(h, "@")
}

// NormalizeAddress lowercases a hex address and ensures the 0x prefix.
// Returns "" for empty input.
func NormalizeAddress(addr string) string {
	a := strings.ToLower(strings.TrimSpace(addr))
	if a == "" {
		return ""
	}
	if !strings.HasPrefix(a, "0x") {
		a = "0x" + a
	}
	return a
}
