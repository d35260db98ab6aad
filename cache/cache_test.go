package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/richinex/chronica/model"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New()

	payload := `{"items":[{"id":"a"},{"id":"b"}]}`
	id := c.Put(payload)

	if !strings.HasPrefix(id, "res_") {
		t.Errorf("expected res_ prefix, got %q", id)
	}

	got, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != payload {
		t.Errorf("expected payload back unchanged, got %q", got)
	}
}

func TestPutDeduplicatesIdenticalPayloads(t *testing.T) {
	c := New()

	first := c.Put("same payload")
	second := c.Put("same payload")

	if first != second {
		t.Errorf("identical payloads should share one id: %q vs %q", first, second)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	third := c.Put("different payload")
	if third == first {
		t.Error("different payloads must not share an id")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	c := New()

	_, err := c.Get("res_missing")
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !model.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestShouldCacheThresholdBoundary(t *testing.T) {
	c := NewWithThreshold(100)

	exact := strings.Repeat("x", 100)
	if c.ShouldCache(exact) {
		t.Error("payload at exactly the threshold should not be cached")
	}
	over := strings.Repeat("x", 101)
	if !c.ShouldCache(over) {
		t.Error("payload one byte over the threshold should be cached")
	}
}

func TestNewWithThresholdRejectsNonPositive(t *testing.T) {
	c := NewWithThreshold(0)
	if c.Threshold() != DefaultThreshold {
		t.Errorf("expected default threshold %d, got %d", DefaultThreshold, c.Threshold())
	}
	c = NewWithThreshold(-5)
	if c.Threshold() != DefaultThreshold {
		t.Errorf("expected default threshold %d, got %d", DefaultThreshold, c.Threshold())
	}
}

func TestSummarizeItemsObject(t *testing.T) {
	c := New()

	payload := `{"items":[{"n":1},{"n":2},{"n":3},{"n":4},{"n":5}]}`
	id := c.Put(payload)
	s := c.Summarize(id, payload)

	if s.ID != id {
		t.Errorf("summary id mismatch: %q vs %q", s.ID, id)
	}
	if s.ItemCount != 5 {
		t.Errorf("expected 5 items, got %d", s.ItemCount)
	}
	if s.ByteSize != len(payload) {
		t.Errorf("expected byte size %d, got %d", len(payload), s.ByteSize)
	}

	var head []json.RawMessage
	if err := json.Unmarshal(s.Head, &head); err != nil {
		t.Fatalf("unmarshal head: %v", err)
	}
	if len(head) != 3 {
		t.Errorf("expected head of 3 items, got %d", len(head))
	}
	if !strings.Contains(s.Note, id) {
		t.Errorf("note should mention the id: %q", s.Note)
	}
	if !strings.Contains(s.Note, "cache_ref") {
		t.Errorf("note should explain how to reference the entry: %q", s.Note)
	}
}

func TestSummarizeBareArray(t *testing.T) {
	c := New()

	payload := `[{"n":1},{"n":2}]`
	s := c.Summarize("res_x", payload)

	if s.ItemCount != 2 {
		t.Errorf("expected 2 items, got %d", s.ItemCount)
	}
	var head []json.RawMessage
	if err := json.Unmarshal(s.Head, &head); err != nil {
		t.Fatalf("unmarshal head: %v", err)
	}
	if len(head) != 2 {
		t.Errorf("expected full head of 2 items, got %d", len(head))
	}
}

func TestSummarizeNonEnumerablePayload(t *testing.T) {
	c := New()

	s := c.Summarize("res_x", `{"answer":42}`)
	if s.ItemCount != 0 {
		t.Errorf("expected 0 items, got %d", s.ItemCount)
	}
	if s.Head != nil {
		t.Errorf("expected no head, got %s", s.Head)
	}
}

func TestStoreIfLargeSmallPayloadUnchanged(t *testing.T) {
	c := NewWithThreshold(100)

	content, cached := c.StoreIfLarge("small")
	if cached {
		t.Error("small payload should not be cached")
	}
	if content != "small" {
		t.Errorf("expected payload back unchanged, got %q", content)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestStoreIfLargeCachesAndSummarizes(t *testing.T) {
	c := NewWithThreshold(100)

	payload := `{"items":[` + strings.Repeat(`{"n":1},`, 30) + `{"n":2}]}`
	if len(payload) <= 100 {
		t.Fatalf("test payload too small: %d bytes", len(payload))
	}

	content, cached := c.StoreIfLarge(payload)
	if !cached {
		t.Fatal("expected payload to be cached")
	}

	var s Summary
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		t.Fatalf("replacement should be a serialized summary: %v", err)
	}
	if s.ItemCount != 31 {
		t.Errorf("expected 31 items, got %d", s.ItemCount)
	}

	got, err := c.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != payload {
		t.Error("cached payload should match the original")
	}
}

func TestConcurrentPutGet(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			payload := strings.Repeat("p", n+1)
			id := c.Put(payload)
			got, err := c.Get(id)
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			if got != payload {
				t.Errorf("payload mismatch for %d bytes", n+1)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 16 {
		t.Errorf("expected 16 distinct entries, got %d", c.Len())
	}
}
