// Package cache stores full tool outputs and hands the conversation a small
// summary plus an identifier, so later steps can reference large prior
// results without resending them to the model.
//
// Entries are immutable once written and live for the process only; a simple
// RWMutex around the maps is sufficient for concurrent tool executions.
package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/richinex/chronica/model"
)

// DefaultThreshold is the serialized size above which a tool result is
// cached and replaced by its reference in the transcript.
const DefaultThreshold = 4096

// summaryItems is how many leading items a summary shows.
const summaryItems = 3

// Summary is the lightweight stand-in for a cached payload. Always well
// below the caching threshold.
type Summary struct {
	ID        string          `json:"id"`
	ItemCount int             `json:"item_count"`
	ByteSize  int             `json:"byte_size"`
	Head      json.RawMessage `json:"head,omitempty"`
	Note      string          `json:"note"`
}

// ResultCache is a process-lifetime store of large tool outputs.
type ResultCache struct {
	mu        sync.RWMutex
	entries   map[string]string // id -> serialized payload
	byHash    map[uint64]string // content hash -> id, for dedup
	threshold int
}

// New creates a cache with the default size threshold.
func New() *ResultCache {
	return NewWithThreshold(DefaultThreshold)
}

// NewWithThreshold creates a cache that caches payloads above the given
// serialized byte size.
func NewWithThreshold(threshold int) *ResultCache {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ResultCache{
		entries:   make(map[string]string),
		byHash:    make(map[uint64]string),
		threshold: threshold,
	}
}

// Threshold returns the size above which payloads should be cached.
func (c *ResultCache) Threshold() int { return c.threshold }

// Put stores a serialized payload and returns its identifier. Identical
// payloads share one entry.
func (c *ResultCache) Put(payload string) string {
	hash := xxhash.Sum64String(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byHash[hash]; ok {
		// Hash collision across different payloads is possible in theory;
		// verify before reusing the entry.
		if c.entries[id] == payload {
			return id
		}
	}

	id := "res_" + uuid.NewString()
	c.entries[id] = payload
	c.byHash[hash] = id
	return id
}

// Get retrieves a payload by identifier.
func (c *ResultCache) Get(id string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	payload, ok := c.entries[id]
	if !ok {
		return "", model.NotFoundf("cached result %q", id)
	}
	return payload, nil
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ShouldCache reports whether a serialized payload exceeds the threshold.
func (c *ResultCache) ShouldCache(payload string) bool {
	return len(payload) > c.threshold
}

// Summarize builds the lightweight summary for a payload already stored
// under id. If the payload is a JSON array or carries an "items" array, the
// summary includes the first few elements.
func (c *ResultCache) Summarize(id, payload string) Summary {
	s := Summary{
		ID:       id,
		ByteSize: len(payload),
	}

	items := extractItems(payload)
	s.ItemCount = len(items)
	if n := len(items); n > 0 {
		head := items
		if n > summaryItems {
			head = items[:summaryItems]
		}
		if raw, err := json.Marshal(head); err == nil && len(raw) < c.threshold/2 {
			s.Head = raw
		}
	}

	s.Note = fmt.Sprintf(
		"full result cached as %s (%d bytes, %d items); pass this id as cache_ref to reference it",
		id, s.ByteSize, s.ItemCount)
	return s
}

// StoreIfLarge caches the payload when it exceeds the threshold and returns
// the transcript replacement (the serialized summary). Small payloads come
// back unchanged with cached=false.
func (c *ResultCache) StoreIfLarge(payload string) (content string, cached bool) {
	if !c.ShouldCache(payload) {
		return payload, false
	}
	id := c.Put(payload)
	summary := c.Summarize(id, payload)
	raw, err := json.Marshal(summary)
	if err != nil {
		// Marshal of a plain struct cannot realistically fail; fall back to
		// the note text.
		return summary.Note, true
	}
	return string(raw), true
}

// extractItems pulls the enumerable elements out of a serialized payload.
func extractItems(payload string) []json.RawMessage {
	trimmed := strings.TrimSpace(payload)

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
		return arr
	}

	var obj struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		return obj.Items
	}
	return nil
}
