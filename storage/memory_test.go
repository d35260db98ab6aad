package storage

import (
	"context"
	"testing"
	"time"

	"github.com/richinex/chronica/model"
)

func item(id string, ts time.Time, text string) model.SearchableItem {
	return model.SearchableItem{
		ID:        id,
		Scope:     model.ScopeEntries,
		Timestamp: ts,
		Text:      text,
	}
}

func seed(t *testing.T, s *MemoryStore, items ...model.SearchableItem) {
	t.Helper()
	if err := s.PutItems(context.Background(), items); err != nil {
		t.Fatalf("PutItems: %v", err)
	}
}

func TestListItemsOrderedByTimestamp(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s,
		item("c", base.AddDate(0, 0, 2), "third"),
		item("a", base, "first"),
		item("b", base.AddDate(0, 0, 1), "second"),
	)

	items, err := s.ListItems(context.Background(), model.ScopeEntries, ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	ids := []string{}
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected ascending order %v, got %v", want, ids)
		}
	}
}

func TestListItemsFilters(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s,
		item("a", base, "one"),
		item("b", base.AddDate(0, 0, 5), "two"),
		item("c", base.AddDate(0, 0, 10), "three"),
	)
	other := item("x", base, "other scope")
	other.Scope = model.ScopeAnalytics
	seed(t, s, other)

	ctx := context.Background()

	// Scope isolation.
	items, err := s.ListItems(ctx, model.ScopeAnalytics, ItemFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "x" {
		t.Errorf("scope filter leaked: %+v", items)
	}

	// Inclusive date range.
	start := base.AddDate(0, 0, 5)
	end := base.AddDate(0, 0, 10)
	items, err = s.ListItems(ctx, model.ScopeEntries, ItemFilter{Start: &start, End: &end})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ID != "b" || items[1].ID != "c" {
		t.Errorf("range filter wrong: %+v", items)
	}

	// ID allow-list.
	items, err = s.ListItems(ctx, model.ScopeEntries, ItemFilter{IDs: []string{"a", "c"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "c" {
		t.Errorf("id filter wrong: %+v", items)
	}
}

func TestKeywordRankDiscriminates(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s,
		item("hit", base, "migraine migraine migraine after work"),
		item("weak", base, "one migraine mention in a longer entry about other things entirely"),
		item("miss", base, "gardening and groceries"),
	)
	ctx := context.Background()

	strong, err := s.KeywordRank(ctx, "migraine", "hit")
	if err != nil {
		t.Fatal(err)
	}
	weak, err := s.KeywordRank(ctx, "migraine", "weak")
	if err != nil {
		t.Fatal(err)
	}
	none, err := s.KeywordRank(ctx, "migraine", "miss")
	if err != nil {
		t.Fatal(err)
	}

	if strong <= weak {
		t.Errorf("higher term frequency should rank higher: %v vs %v", strong, weak)
	}
	if weak <= 0 {
		t.Errorf("matching item should score positive, got %v", weak)
	}
	if none != 0 {
		t.Errorf("non-matching item should score 0, got %v", none)
	}
}

func TestKeywordRankEmptyAndUnknown(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, item("a", time.Now(), "hello world"))
	ctx := context.Background()

	if score, _ := s.KeywordRank(ctx, "", "a"); score != 0 {
		t.Errorf("empty keyword should score 0, got %v", score)
	}
	if score, _ := s.KeywordRank(ctx, "hello", "ghost"); score != 0 {
		t.Errorf("unknown item should score 0, got %v", score)
	}
}

func TestKeywordRanksScoped(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s,
		item("a", base, "sleep went badly"),
		item("b", base, "sleep was fine"),
		item("c", base, "nothing relevant"),
	)
	other := item("x", base, "sleep in the wrong scope")
	other.Scope = model.ScopeAnalytics
	seed(t, s, other)

	ranks, err := s.KeywordRanks(context.Background(), model.ScopeEntries, "sleep")
	if err != nil {
		t.Fatal(err)
	}
	if len(ranks) != 2 {
		t.Fatalf("expected 2 matches, got %v", ranks)
	}
	if _, ok := ranks["x"]; ok {
		t.Error("scope filter leaked into keyword ranks")
	}
	if ranks["a"] <= 0 || ranks["b"] <= 0 {
		t.Errorf("matches should score positive: %v", ranks)
	}
}

func TestPutItemsReplaceReindexes(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, item("a", base, "migraine day"))

	// Replace the item with text that no longer mentions the keyword.
	seed(t, s, item("a", base, "calm day"))

	score, err := s.KeywordRank(context.Background(), "migraine", "a")
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Errorf("stale index entry survived replace, score %v", score)
	}
	score, err = s.KeywordRank(context.Background(), "calm", "a")
	if err != nil {
		t.Fatal(err)
	}
	if score <= 0 {
		t.Errorf("new text should be indexed, score %v", score)
	}
}

func TestConversationRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	transcript := []model.ConversationTurn{
		model.UserTurn("how was april"),
		model.AssistantTurn("let me check"),
	}
	if err := s.Save(ctx, "sess-1", transcript); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Text != "how was april" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}

	// The store must hold its own copy.
	transcript[0].Text = "mutated"
	loaded, _ = s.Load(ctx, "sess-1")
	if loaded[0].Text != "how was april" {
		t.Error("caller mutation leaked into the stored transcript")
	}
	loaded[1].Text = "mutated"
	again, _ := s.Load(ctx, "sess-1")
	if again[1].Text != "let me check" {
		t.Error("mutation of a loaded transcript leaked into the store")
	}
}

func TestLoadMissingSessionIsEmpty(t *testing.T) {
	s := NewMemoryStore()

	loaded, err := s.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || len(loaded) != 0 {
		t.Errorf("missing session should load as empty slice, got %v", loaded)
	}
}

func TestListSessionsSortedAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := s.Save(ctx, id, []model.ConversationTurn{model.UserTurn("hi")}); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %v", sessions)
	}
	for i := range want {
		if sessions[i] != want[i] {
			t.Fatalf("expected sorted %v, got %v", want, sessions)
		}
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	sessions, _ = s.ListSessions(ctx)
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions after delete, got %v", sessions)
	}
}
