package model

// ErrorKind is a stable tag for a provider-level failure, reported
// per fan-out leg inside an aggregation page.
type ErrorKind string

const (
	ErrorKindTimeout      ErrorKind = "UpstreamTimeout"
	ErrorKindUpstream     ErrorKind = "UpstreamError"
	ErrorKindUnauthorized ErrorKind = "Unauthorized"
)

// Page is one page of aggregated NFTs.
// Partial is true when at least one fan-out leg failed; the page is
// still returned with whatever the surviving legs produced.
type Page struct {
	Items             []*NFT               `json:"items"`
	NextCursor        string               `json:"next_cursor,omitempty"`
	Partial           bool                 `json:"partial"`
	PerProviderErrors map[string]ErrorKind `json:"per_provider_errors,omitempty"`
}
