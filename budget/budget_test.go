package budget

import (
	"strings"
	"testing"

	"github.com/richinex/chronica/model"
)

func itemWithText(id string, chars int) model.RankedItem {
	return model.RankedItem{Item: model.SearchableItem{ID: id, Text: strings.Repeat("x", chars)}}
}

func TestAllotmentFractions(t *testing.T) {
	m := NewManager(1000)
	cases := []struct {
		kind OperationKind
		want int
	}{
		{KindPatternScan, 900},
		{KindStatistical, 600},
		{KindDecisionSupport, 500},
		{KindSynthesis, 400},
		{KindRetrievalFeed, 750},
	}
	for _, c := range cases {
		if got := m.Allotment(c.kind); got != c.want {
			t.Errorf("Allotment(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestAllotmentUnknownKindIsConservative(t *testing.T) {
	m := NewManager(1000)
	if got := m.Allotment("mystery"); got != 400 {
		t.Errorf("unknown kind should get the synthesis fraction, got %d", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(model.SearchableItem{Text: strings.Repeat("a", 400)}); got != 100 {
		t.Errorf("400 chars = %d tokens, want 100", got)
	}
	// Rounds up.
	if got := EstimateTokens(model.SearchableItem{Text: "abcde"}); got != 2 {
		t.Errorf("5 chars = %d tokens, want 2", got)
	}
	// Empty text still costs the structural floor.
	if got := EstimateTokens(model.SearchableItem{}); got != 16 {
		t.Errorf("empty item = %d tokens, want 16", got)
	}
}

func TestSelectNeverExceedsAllotment(t *testing.T) {
	m := NewManager(100) // pattern scan allotment: 90 tokens

	candidates := []model.RankedItem{
		itemWithText("a", 200), // 50 tokens
		itemWithText("b", 120), // 30 tokens
		itemWithText("c", 200), // 50 tokens, would overflow
		itemWithText("d", 20),  // 5 tokens, but selection is a prefix
	}

	selected := m.Select(candidates, KindPatternScan)
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(selected))
	}

	used := 0
	for _, ri := range selected {
		used += EstimateTokens(ri.Item)
	}
	if used > m.Allotment(KindPatternScan) {
		t.Errorf("selection used %d tokens, allotment is %d", used, m.Allotment(KindPatternScan))
	}
	// Greedy prefix: "d" would fit but comes after the overflow point.
	for _, ri := range selected {
		if ri.Item.ID == "d" {
			t.Error("selection must be a prefix, not a knapsack fill")
		}
	}
}

func TestSelectIsReproducible(t *testing.T) {
	m := NewManager(500)
	candidates := []model.RankedItem{
		itemWithText("a", 400),
		itemWithText("b", 400),
		itemWithText("c", 400),
	}
	first := m.Select(candidates, KindStatistical)
	second := m.Select(candidates, KindStatistical)
	if len(first) != len(second) {
		t.Fatalf("selection not reproducible: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Item.ID != second[i].Item.ID {
			t.Errorf("position %d differs", i)
		}
	}
}

func TestSelectEmptyAndOversized(t *testing.T) {
	m := NewManager(100)
	if got := m.Select(nil, KindSynthesis); len(got) != 0 {
		t.Errorf("nil candidates should select nothing, got %d", len(got))
	}
	// A first item that alone exceeds the allotment yields an empty selection.
	huge := []model.RankedItem{itemWithText("huge", 100000)}
	if got := m.Select(huge, KindSynthesis); len(got) != 0 {
		t.Errorf("oversized first item should select nothing, got %d", len(got))
	}
}

func TestNewManagerDefaultCeiling(t *testing.T) {
	m := NewManager(0)
	defaultCeiling := 8192.0
	if got := m.Allotment(KindPatternScan); got != int(defaultCeiling*0.9) {
		t.Errorf("default ceiling allotment = %d", got)
	}
}

func TestSelectWithin(t *testing.T) {
	candidates := []model.RankedItem{itemWithText("a", 40), itemWithText("b", 40000)}
	got := SelectWithin(candidates, KindRetrievalFeed, 100)
	if len(got) != 1 || got[0].Item.ID != "a" {
		t.Errorf("SelectWithin = %+v, want just item a", got)
	}
}
