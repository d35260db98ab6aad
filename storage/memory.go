// In-memory item store and conversation storage.
//
// Keyword relevance uses BM25 over an inverted index so scores stay
// comparable with the SQLite FTS5 backend. Suitable for tests and
// ephemeral sessions; data is lost when the process terminates.
package storage

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/richinex/chronica/model"
)

// BM25 parameters, standard defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// MemoryStore implements ItemStore and ConversationStorage with maps.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]model.SearchableItem
	sessions map[string][]model.ConversationTurn

	// Inverted index for BM25: term -> itemID -> term frequency.
	index      map[string]map[string]int
	docLengths map[string]int
	totalLen   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:      make(map[string]model.SearchableItem),
		sessions:   make(map[string][]model.ConversationTurn),
		index:      make(map[string]map[string]int),
		docLengths: make(map[string]int),
	}
}

// PutItems inserts or replaces items and maintains the inverted index.
func (s *MemoryStore) PutItems(ctx context.Context, items []model.SearchableItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		if _, exists := s.items[it.ID]; exists {
			s.removeFromIndexLocked(it.ID)
		}
		s.items[it.ID] = it

		tokens := tokenize(it.Text)
		s.docLengths[it.ID] = len(tokens)
		s.totalLen += len(tokens)
		for _, tok := range tokens {
			if s.index[tok] == nil {
				s.index[tok] = make(map[string]int)
			}
			s.index[tok][it.ID]++
		}
	}
	return nil
}

func (s *MemoryStore) removeFromIndexLocked(itemID string) {
	old := s.items[itemID]
	for _, tok := range tokenize(old.Text) {
		if docs, ok := s.index[tok]; ok {
			if docs[itemID] > 1 {
				docs[itemID]--
			} else {
				delete(docs, itemID)
				if len(docs) == 0 {
					delete(s.index, tok)
				}
			}
		}
	}
	s.totalLen -= s.docLengths[itemID]
	delete(s.docLengths, itemID)
}

// ListItems returns items in the scope matching the filter, by timestamp ascending.
func (s *MemoryStore) ListItems(ctx context.Context, scope model.Scope, f ItemFilter) ([]model.SearchableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allow := map[string]bool{}
	for _, id := range f.IDs {
		allow[id] = true
	}

	items := []model.SearchableItem{}
	for _, it := range s.items {
		if it.Scope != scope {
			continue
		}
		if f.Start != nil && it.Timestamp.Before(*f.Start) {
			continue
		}
		if f.End != nil && it.Timestamp.After(*f.End) {
			continue
		}
		if len(allow) > 0 && !allow[it.ID] {
			continue
		}
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.Before(items[j].Timestamp)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// KeywordRank returns the BM25 score of one item for a keyword.
func (s *MemoryStore) KeywordRank(ctx context.Context, keyword, itemID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bm25Locked(keyword, itemID), nil
}

// KeywordRanks returns BM25 scores for all matching items in a scope.
func (s *MemoryStore) KeywordRanks(ctx context.Context, scope model.Scope, keyword string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranks := make(map[string]float64)
	seen := map[string]bool{}
	for _, tok := range tokenize(keyword) {
		for id := range s.index[tok] {
			if seen[id] {
				continue
			}
			seen[id] = true
			if it, ok := s.items[id]; !ok || it.Scope != scope {
				continue
			}
			if score := s.bm25Locked(keyword, id); score > 0 {
				ranks[id] = score
			}
		}
	}
	return ranks, nil
}

func (s *MemoryStore) bm25Locked(keyword, itemID string) float64 {
	tokens := tokenize(keyword)
	if len(tokens) == 0 {
		return 0
	}
	docLen, ok := s.docLengths[itemID]
	if !ok || len(s.items) == 0 {
		return 0
	}
	avgLen := float64(s.totalLen) / float64(len(s.items))
	if avgLen == 0 {
		return 0
	}

	var score float64
	n := float64(len(s.items))
	for _, tok := range tokens {
		docs := s.index[tok]
		tf := float64(docs[itemID])
		if tf == 0 {
			continue
		}
		df := float64(len(docs))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(docLen)/avgLen))
		score += idf * norm
	}
	return score
}

// tokenize lowercases and splits on non-letter/digit runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Save saves the transcript for a session.
func (s *MemoryStore) Save(ctx context.Context, sessionID string, transcript []model.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.ConversationTurn, len(transcript))
	copy(copied, transcript)
	s.sessions[sessionID] = copied
	return nil
}

// Load loads the transcript for a session.
// Returns an empty slice (not nil) if the session doesn't exist.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]model.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transcript, ok := s.sessions[sessionID]
	if !ok {
		return []model.ConversationTurn{}, nil
	}
	copied := make([]model.ConversationTurn, len(transcript))
	copy(copied, transcript)
	return copied, nil
}

// Delete removes a session's transcript.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// ListSessions lists all session IDs.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Verify interface conformance
var (
	_ ItemStore           = (*MemoryStore)(nil)
	_ ConversationStorage = (*MemoryStore)(nil)
)
