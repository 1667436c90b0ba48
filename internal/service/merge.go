package service

import (
	"github.com/gall3ry/gall3ry/internal/model"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

// assemblePage merges leg results into one deduplicated page and
// builds the continuation cursor.
//
// For OrderByKey legs are merged smallest-key-first, which visits each
// leg's sorted records as a prefix; for OrderByRecent legs are merged
// round-robin in cursor-key order, visiting each leg's provider-order
// records as a prefix. Either way the per-leg consumed count is a
// contiguous prefix, so a {pageKey, skip} pair resumes the leg exactly.
func (a *Aggregator) assemblePage(legs []leg, results []legResult, cursor model.Cursor, pageSize int, orderBy string) *model.Page {
	page := &model.Page{Items: make([]*model.NFT, 0, pageSize)}

	heads := make([]int, len(legs))
	consumed := make([]int, len(legs))
	deduper := NewDeduper()

	next := nextByKey
	if orderBy == OrderByRecent {
		next = nextRoundRobin(len(legs))
	}

	for {
		li, ok := next(results, heads)
		if !ok {
			break
		}
		record := results[li].records[heads[li]]

		// Duplicates are swallowed even once the page is full, so a
		// key emitted on this page can never resurface on the next.
		if deduper.Seen(record.Key) {
			heads[li]++
			consumed[li]++
			continue
		}
		if len(page.Items) == pageSize {
			break
		}

		heads[li]++
		consumed[li]++
		deduper.Admit(record.Key)
		page.Items = append(page.Items, record)
	}

	// Every leg gets an entry in the continuation cursor. A drained leg
	// carries an explicit done marker: an absent entry means "start from
	// the beginning", so omitting a drained leg would resurrect it on
	// the next page and replay its records.
	nextCursor := model.Cursor{}
	for i, l := range legs {
		res := results[i]

		if l.cursor.Done {
			nextCursor[l.key] = model.LegCursor{Done: true}
			continue
		}

		if res.err != nil {
			page.Partial = true
			if page.PerProviderErrors == nil {
				page.PerProviderErrors = make(map[string]model.ErrorKind)
			}
			errKey := l.network.Tag() + "-indexer"
			if _, exists := page.PerProviderErrors[errKey]; !exists {
				page.PerProviderErrors[errKey] = upstream.Kind(res.err)
			}
			// A failed leg keeps its incoming cursor entry so a retry
			// on the next page resumes where this one left off; with no
			// incoming entry it retries from the beginning.
			nextCursor[l.key] = cursor[l.key]
			continue
		}

		switch {
		case consumed[i] < len(res.records):
			nextCursor[l.key] = model.LegCursor{
				PageKey: l.cursor.PageKey,
				Skip:    l.cursor.Skip + consumed[i],
			}
		case res.newPageKey != "":
			nextCursor[l.key] = model.LegCursor{PageKey: res.newPageKey}
		default:
			nextCursor[l.key] = model.LegCursor{Done: true}
		}
	}

	// The chain ends only when no leg has work left; a cursor of pure
	// done markers would just buy an empty extra round trip.
	pending := false
	for _, entry := range nextCursor {
		if !entry.Done {
			pending = true
			break
		}
	}
	if pending {
		encoded, err := nextCursor.Encode()
		if err != nil {
			a.logger.Error("cursor encode failed", "error", err)
		} else {
			page.NextCursor = encoded
		}
	}

	return page
}

// nextByKey picks the unexhausted leg whose head record has the
// smallest canonical key; ties go to the lower leg index.
func nextByKey(results []legResult, heads []int) (int, bool) {
	best := -1
	for i := range results {
		if heads[i] >= len(results[i].records) {
			continue
		}
		if best < 0 || keyLess(results[i].records[heads[i]].Key, results[best].records[heads[best]].Key) {
			best = i
		}
	}
	return best, best >= 0
}

// nextRoundRobin cycles legs in cursor-key order, skipping exhausted
// ones, so each leg's provider ordering interleaves fairly.
func nextRoundRobin(n int) func([]legResult, []int) (int, bool) {
	cur := 0
	return func(results []legResult, heads []int) (int, bool) {
		for tried := 0; tried < n; tried++ {
			i := (cur + tried) % n
			if heads[i] < len(results[i].records) {
				cur = (i + 1) % n
				return i, true
			}
		}
		return -1, false
	}
}
