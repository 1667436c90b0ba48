package service

import "github.com/gall3ry/gall3ry/internal/model"

// Deduper filters a canonical NFT stream so each key is emitted once.
// Contract addresses compare case-insensitively (the key's canonical
// form lowercases them); token ids compare case-sensitively.
// First occurrence wins.
type Deduper struct {
	seen map[string]struct{}
}

// NewDeduper creates an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Seen reports whether the key was already admitted.
func (d *Deduper) Seen(key model.NFTKey) bool {
	_, ok := d.seen[key.String()]
	return ok
}

// Admit registers the key and reports whether it is novel.
func (d *Deduper) Admit(key model.NFTKey) bool {
	s := key.String()
	if _, ok := d.seen[s]; ok {
		return false
	}
	d.seen[s] = struct{}{}
	return true
}
