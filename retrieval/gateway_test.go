package retrieval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/richinex/chronica/model"
	"github.com/richinex/chronica/storage"
)

// stubEmbedder embeds text as a fixed unit vector so similarity is driven
// entirely by the item embeddings seeded in each test.
type stubEmbedder struct {
	vec []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, nil
}

func seedStore(t *testing.T, items []model.SearchableItem) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.PutItems(context.Background(), items); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return store
}

func fixedNow() time.Time {
	return time.Date(2025, 10, 27, 12, 0, 0, 0, time.UTC)
}

func TestDateDescBeatsSimilarity(t *testing.T) {
	// A maximally similar but ancient item must lose to a dissimilar recent
	// one when the query asks for date_desc with limit 1.
	store := seedStore(t, []model.SearchableItem{
		{ID: "ancient", Scope: model.ScopeEntries,
			Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Text:      "perfect match", Embedding: []float32{1, 0}},
		{ID: "recent", Scope: model.ScopeEntries,
			Timestamp: time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC),
			Text:      "unrelated", Embedding: []float32{0, 1}},
	})

	g := NewGateway(store, &stubEmbedder{vec: []float32{1, 0}}, nil, Options{Now: fixedNow})
	res, err := g.Retrieve(context.Background(), model.Query{
		Scope:  model.ScopeEntries,
		Phrase: "perfect match",
		Sort:   model.SortDateDesc,
		Limit:  1,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Item.ID != "recent" {
		t.Fatalf("date_desc limit 1 must return the newest item, got %+v", res.Items)
	}
}

func TestRetrieveValidationError(t *testing.T) {
	g := NewGateway(storage.NewMemoryStore(), nil, nil, Options{})
	_, err := g.Retrieve(context.Background(), model.Query{Scope: "nope"})
	if !model.IsValidation(err) {
		t.Fatalf("invalid scope should be a validation error, got %v", err)
	}

	_, err = g.Retrieve(context.Background(), model.Query{Scope: model.ScopeEntries, Limit: 1000})
	if !model.IsValidation(err) {
		t.Fatalf("oversized limit should be a validation error, got %v", err)
	}
}

func TestRetrieveUnknownPreset(t *testing.T) {
	g := NewGateway(storage.NewMemoryStore(), nil, nil, Options{})
	_, err := g.Retrieve(context.Background(), model.Query{Scope: model.ScopeEntries, Preset: "mystery"})
	if !model.IsValidation(err) {
		t.Fatalf("unknown preset should be a validation error, got %v", err)
	}
}

func TestRetrieveConfidenceLowForSparseResults(t *testing.T) {
	var items []model.SearchableItem
	for i := 0; i < 5; i++ {
		items = append(items, model.SearchableItem{
			ID: strings.Repeat("x", i+1), Scope: model.ScopeEntries,
			Timestamp: fixedNow().AddDate(0, 0, -i), Text: "note",
		})
	}
	g := NewGateway(seedStore(t, items), nil, nil, Options{Now: fixedNow})

	res, err := g.Retrieve(context.Background(), model.Query{Scope: model.ScopeEntries})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Metadata.Confidence != model.ConfidenceLow {
		t.Errorf("5 items should classify low, got %s", res.Metadata.Confidence)
	}
	if res.Metadata.Count != 5 {
		t.Errorf("metadata count = %d, want 5", res.Metadata.Count)
	}
}

func TestRetrieveNoPhraseZeroSimilarity(t *testing.T) {
	items := []model.SearchableItem{{
		ID: "a", Scope: model.ScopeEntries, Timestamp: fixedNow(),
		Text: "hello", Embedding: []float32{1, 0},
	}}
	g := NewGateway(seedStore(t, items), &stubEmbedder{vec: []float32{1, 0}}, nil, Options{Now: fixedNow})

	res, err := g.Retrieve(context.Background(), model.Query{Scope: model.ScopeEntries})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Items[0].Scores.Similarity != 0 {
		t.Errorf("similarity without phrase = %v, want 0", res.Items[0].Scores.Similarity)
	}
}

func TestRetrieveDateRangeFilters(t *testing.T) {
	items := []model.SearchableItem{
		{ID: "in", Scope: model.ScopeEntries, Timestamp: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), Text: "inside"},
		{ID: "out", Scope: model.ScopeEntries, Timestamp: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Text: "outside"},
	}
	g := NewGateway(seedStore(t, items), nil, nil, Options{Now: fixedNow})

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	res, err := g.Retrieve(context.Background(), model.Query{Scope: model.ScopeEntries, Start: &start, End: &end})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Item.ID != "in" {
		t.Fatalf("date filter should keep only the in-range item, got %+v", res.Items)
	}
}

func TestRetrieveBucketView(t *testing.T) {
	m1, m2 := 4.0, 8.0
	items := []model.SearchableItem{
		{ID: "a", Scope: model.ScopeAnalytics, Timestamp: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Metric: &m1},
		{ID: "b", Scope: model.ScopeAnalytics, Timestamp: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), Metric: &m2},
		{ID: "c", Scope: model.ScopeAnalytics, Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	g := NewGateway(seedStore(t, items), nil, nil, Options{Now: fixedNow})

	res, err := g.Retrieve(context.Background(), model.Query{
		Scope: model.ScopeAnalytics, View: model.ViewBuckets, Bucket: model.BucketMonth,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Items != nil {
		t.Error("bucket view must not include raw items")
	}
	if len(res.Buckets) != 2 {
		t.Fatalf("expected 2 month buckets, got %d", len(res.Buckets))
	}
	may := res.Buckets[0]
	if may.Bucket != "2025-05" || may.Count != 2 {
		t.Errorf("may bucket = %+v", may)
	}
	if may.MetricAvg == nil || *may.MetricAvg != 6.0 {
		t.Errorf("may metric avg = %v, want 6.0", may.MetricAvg)
	}
	june := res.Buckets[1]
	if june.MetricAvg != nil {
		t.Errorf("june has no metrics, avg should be nil, got %v", *june.MetricAvg)
	}
}

func TestRetrieveStatsView(t *testing.T) {
	m1, m2, m3 := 2.0, 4.0, 9.0
	items := []model.SearchableItem{
		{ID: "a", Scope: model.ScopeAnalytics, Timestamp: fixedNow(), Metric: &m1},
		{ID: "b", Scope: model.ScopeAnalytics, Timestamp: fixedNow(), Metric: &m2},
		{ID: "c", Scope: model.ScopeAnalytics, Timestamp: fixedNow(), Metric: &m3},
		{ID: "d", Scope: model.ScopeAnalytics, Timestamp: fixedNow()},
	}
	g := NewGateway(seedStore(t, items), nil, nil, Options{Now: fixedNow})

	res, err := g.Retrieve(context.Background(), model.Query{Scope: model.ScopeAnalytics, View: model.ViewStats})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	s := res.Stats
	if s == nil {
		t.Fatal("stats view returned nil stats")
	}
	if s.Count != 3 || s.Min != 2.0 || s.Max != 9.0 || s.Avg != 5.0 {
		t.Errorf("stats = %+v", *s)
	}
}

func TestRetrieveHistogramView(t *testing.T) {
	m := 9.99
	items := []model.SearchableItem{
		{ID: "a", Scope: model.ScopeAnalytics, Timestamp: fixedNow(), Metric: &m},
	}
	g := NewGateway(seedStore(t, items), nil, nil, Options{Now: fixedNow})

	res, err := g.Retrieve(context.Background(), model.Query{Scope: model.ScopeAnalytics, View: model.ViewHistogram})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(res.Histogram) != 10 {
		t.Fatalf("expected 10 bins, got %d", len(res.Histogram))
	}
	if res.Histogram[9].Count != 1 {
		t.Errorf("value 9.99 should land in the top bin, got %+v", res.Histogram)
	}
}

func TestRetrieveKeywordSignal(t *testing.T) {
	now := fixedNow()
	items := []model.SearchableItem{
		{ID: "match", Scope: model.ScopeEntries, Timestamp: now, Text: "migraine after long day"},
		{ID: "other", Scope: model.ScopeEntries, Timestamp: now, Text: "quiet morning walk"},
	}
	g := NewGateway(seedStore(t, items), nil, nil, Options{Now: fixedNow})

	res, err := g.Retrieve(context.Background(), model.Query{Scope: model.ScopeEntries, Keyword: "migraine"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Items[0].Item.ID != "match" {
		t.Fatalf("keyword match should rank first, got %s", res.Items[0].Item.ID)
	}
	if res.Items[0].Scores.Keyword <= res.Items[1].Scores.Keyword {
		t.Errorf("keyword score not discriminating: %v <= %v",
			res.Items[0].Scores.Keyword, res.Items[1].Scores.Keyword)
	}
}
