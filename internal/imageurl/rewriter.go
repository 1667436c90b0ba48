// Package imageurl rewrites raw NFT media URIs into ordered lists of
// HTTP candidates a browser (or the image proxy) can actually fetch.
package imageurl

import (
	"net/url"
	"strings"
)

// DefaultGateways is the fallback IPFS gateway priority list.
var DefaultGateways = []string{
	"nftstorage.link",
	"dweb.link",
	"ipfs.io",
	"cloudflare-ipfs.com",
}

// DefaultDegradedHosts are pinning hosts known to 403 unauthenticated
// traffic; their /ipfs/ URLs are re-expanded against the gateway list.
var DefaultDegradedHosts = []string{
	"mypinata.cloud",
}

// Rewriter turns raw media URIs into ordered candidate URLs.
// It is pure: the same input always yields the same list.
type Rewriter struct {
	gateways []string
	degraded []string
}

// NewRewriter builds a Rewriter with the given gateway priority list
// and degraded pinning hosts. Nil slices select the defaults.
func NewRewriter(gateways, degradedHosts []string) *Rewriter {
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	if degradedHosts == nil {
		degradedHosts = DefaultDegradedHosts
	}
	return &Rewriter{
		gateways: append([]string(nil), gateways...),
		degraded: append([]string(nil), degradedHosts...),
	}
}

// Candidates applies the rewrite rules in order and returns the
// candidate URLs to try. An empty slice means the URI is unusable.
func (r *Rewriter) Candidates(raw string) []string {
	uri := strings.TrimSpace(raw)
	if uri == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		cidPath := strings.TrimPrefix(uri, "ipfs://")
		// Some minters write ipfs://ipfs/<cid>.
		cidPath = strings.TrimPrefix(cidPath, "ipfs/")
		return r.expandCID(cidPath, "")

	case strings.HasPrefix(uri, "ar://"):
		txid := strings.TrimPrefix(uri, "ar://")
		if txid == "" {
			return nil
		}
		return []string{"https://arweave.net/" + txid}

	case strings.HasPrefix(uri, "data:"):
		return []string{uri}

	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		parsed, err := url.Parse(uri)
		if err != nil {
			return nil
		}
		if cidPath, ok := ipfsPath(parsed); ok && r.isDegraded(parsed.Hostname()) {
			return r.expandCID(cidPath, uri)
		}
		return []string{uri}
	}

	return nil
}

// expandCID produces one candidate per configured gateway, preserving
// the CID and any trailing path byte-for-byte. If original is
// non-empty it is appended as the last-resort candidate.
func (r *Rewriter) expandCID(cidPath, original string) []string {
	if cidPath == "" {
		return nil
	}
	out := make([]string, 0, len(r.gateways)+1)
	for _, gw := range r.gateways {
		out = append(out, "https://"+gw+"/ipfs/"+cidPath)
	}
	if original != "" {
		out = append(out, original)
	}
	return out
}

// ipfsPath extracts "<cid>[/<path>]" from a gateway-style URL.
func ipfsPath(u *url.URL) (string, bool) {
	const marker = "/ipfs/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return "", false
	}
	cidPath := u.Path[idx+len(marker):]
	if cidPath == "" {
		return "", false
	}
	return cidPath, true
}

// isDegraded matches a hostname against the degraded set. An entry
// matches the host itself or any of its subdomains.
func (r *Rewriter) isDegraded(host string) bool {
	host = strings.ToLower(host)
	for _, d := range r.degraded {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
