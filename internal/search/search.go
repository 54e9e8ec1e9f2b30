// Package search ranks history entries against a query in two phases:
// a cheap fuzzy pass over the cached previews, then a bounded pass that
// loads full content only for entries the preview pass missed. Phase two
// carries hard work budgets so search cost stays constant no matter how
// large the history grows.
package search

import (
	"context"
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/clipd/clipd/internal/store"
)

const (
	// MinContentQueryLen gates phase two: shorter queries match nearly
	// everything in full content and would burn the load budget for
	// nothing.
	MinContentQueryLen = 2

	// PreviewMatchThreshold is the phase-one match count at which phase
	// two is skipped entirely.
	PreviewMatchThreshold = 10

	// MaxContentMatches stops phase two after this many content-only
	// matches have been found.
	MaxContentMatches = 10

	// MaxContentLoads stops phase two after this many blob reads,
	// matched or not.
	MaxContentLoads = 20

	// contentScorePercent discounts content-only matches so a preview
	// match of equal raw quality always ranks at or above one.
	contentScorePercent = 80
)

// MatchKind records which phase produced a result.
type MatchKind int

const (
	MatchPreview MatchKind = iota
	MatchContent
)

// Result is one ranked match.
type Result struct {
	Entry *store.Entry
	Score int
	Kind  MatchKind
}

// ContentLoader loads the full content for an entry on demand. The store
// satisfies this.
type ContentLoader interface {
	LoadContent(id string) (string, error)
}

type previewSource []*store.Entry

func (s previewSource) String(i int) string { return s[i].Preview }
func (s previewSource) Len() int            { return len(s) }

// Run searches entries for query. An empty query returns every entry in
// list order with a zero score. The context is checked between content
// loads; a canceled context abandons phase two and returns ctx.Err() so
// stale results are never surfaced.
func Run(ctx context.Context, query string, entries []*store.Entry, loader ContentLoader) ([]Result, error) {
	if query == "" {
		out := make([]Result, 0, len(entries))
		for _, e := range entries {
			out = append(out, Result{Entry: e, Kind: MatchPreview})
		}
		return out, nil
	}

	type scored struct {
		Result
		pos int
	}

	matches := fuzzy.FindFrom(query, previewSource(entries))

	results := make([]scored, 0, len(matches))
	matched := make(map[int]bool, len(matches))
	for _, m := range matches {
		matched[m.Index] = true
		results = append(results, scored{
			Result: Result{Entry: entries[m.Index], Score: m.Score, Kind: MatchPreview},
			pos:    m.Index,
		})
	}

	if len(query) >= MinContentQueryLen && len(results) < PreviewMatchThreshold {
		loads, found := 0, 0
		for i, e := range entries {
			if matched[i] {
				continue
			}
			if found >= MaxContentMatches || loads >= MaxContentLoads {
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			content, err := loader.LoadContent(e.ID)
			loads++
			if err != nil {
				// A missing blob is that entry's loss, not the
				// search's.
				continue
			}

			m := fuzzy.Find(query, []string{content})
			if len(m) == 0 {
				continue
			}
			found++
			results = append(results, scored{
				Result: Result{Entry: e, Score: discount(m[0].Score), Kind: MatchContent},
				pos:    i,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].pos < results[j].pos
	})

	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r.Result
	}
	return out, nil
}

// discount reduces a content-match score. Negative scores pass through
// untouched so the discount never improves one.
func discount(score int) int {
	if score <= 0 {
		return score
	}
	return score * contentScorePercent / 100
}
