package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor is returned when a client-supplied cursor cannot
// be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// LegCursor resumes one (address, network) leg of a fan-out.
// PageKey is the provider's continuation token for the page being
// consumed; Skip is the number of normalized records of that page
// already emitted to the client, counted in the leg's consumption
// order for the request's orderBy mode. Done marks a leg whose
// records were all emitted; an absent entry means the leg has never
// been fetched, so the two states must stay distinguishable.
type LegCursor struct {
	PageKey string `json:"p,omitempty"`
	Skip    int    `json:"s,omitempty"`
	Done    bool   `json:"d,omitempty"`
}

// Cursor maps leg keys to per-leg continuation state. An absent entry
// means the leg starts from the beginning; an empty cursor is the
// first page. Callers treat the encoded form as opaque.
type Cursor map[string]LegCursor

// LegKey builds the cursor key for an (address, network) leg.
func LegKey(address string, network Network) string {
	return NormalizeAddress(address) + "|" + network.Tag()
}

// Encode serializes the cursor to its opaque wire form.
// An empty cursor encodes to the empty string.
func (c Cursor) Encode() (string, error) {
	if len(c) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses an opaque cursor string. The empty string
// decodes to an empty cursor.
func DecodeCursor(encoded string) (Cursor, error) {
	if encoded == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	for _, leg := range c {
		if leg.Skip < 0 {
			return nil, ErrInvalidCursor
		}
	}
	return c, nil
}
