// Keyword index adapter.
//
// Wraps the store's inverted-index ranking (BM25-style, unbounded) and maps
// it into [0,1] with a fixed saturation constant so keyword scores stay
// comparable across calls and across store backends.
package retrieval

import (
	"context"

	"github.com/richinex/chronica/model"
	"github.com/richinex/chronica/ranking"
	"github.com/richinex/chronica/storage"
)

// keywordSaturation controls how fast raw rank scores approach 1.0.
// A raw score equal to the constant normalizes to 0.5.
const keywordSaturation = 2.0

// NormalizeKeywordScore maps a raw, unbounded rank into [0,1].
func NormalizeKeywordScore(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return raw / (raw + keywordSaturation)
}

// KeywordAdapter scores keywords against items via the store's index.
type KeywordAdapter struct {
	store storage.ItemStore
}

// NewKeywordAdapter creates an adapter over the given store.
func NewKeywordAdapter(store storage.ItemStore) *KeywordAdapter {
	return &KeywordAdapter{store: store}
}

// Score returns the normalized relevance of one item for a keyword.
// Returns 0, not an error, for an empty keyword or an unindexed item.
func (a *KeywordAdapter) Score(ctx context.Context, keyword, itemID string) (float64, error) {
	if keyword == "" {
		return 0, nil
	}
	raw, err := a.store.KeywordRank(ctx, keyword, itemID)
	if err != nil {
		return 0, err
	}
	return NormalizeKeywordScore(raw), nil
}

// Scorer bulk-fetches ranks for the scope and returns a per-item scorer for
// use during ranking. Items absent from the index score 0.
func (a *KeywordAdapter) Scorer(ctx context.Context, scope model.Scope, keyword string) (ranking.KeywordScorer, error) {
	if keyword == "" {
		return func(model.SearchableItem) float64 { return 0 }, nil
	}
	ranks, err := a.store.KeywordRanks(ctx, scope, keyword)
	if err != nil {
		return nil, err
	}
	return func(item model.SearchableItem) float64 {
		return NormalizeKeywordScore(ranks[item.ID])
	}, nil
}
