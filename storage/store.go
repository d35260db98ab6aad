// Package storage provides the document/analytics store and conversation
// persistence consumed by the retrieval core.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interfaces
// - Allows swapping between memory and SQLite without API changes
// - Keyword index maintenance encapsulated in each implementation
package storage

import (
	"context"
	"time"

	"github.com/richinex/chronica/model"
)

// ItemFilter narrows a ListItems call. Filtering always happens in the store,
// before ranking, so ranking never sees an unbounded superset.
type ItemFilter struct {
	Start *time.Time // inclusive
	End   *time.Time // inclusive
	IDs   []string   // allow-list; empty means all
}

// ItemStore exposes read operations over searchable items plus the keyword
// match capability backed by the store's inverted index.
type ItemStore interface {
	// ListItems returns items in the scope matching the filter,
	// ordered by timestamp ascending.
	ListItems(ctx context.Context, scope model.Scope, f ItemFilter) ([]model.SearchableItem, error)

	// KeywordRank returns the raw, unbounded keyword relevance of one item.
	// Returns 0 (not an error) for unindexed items or an empty keyword.
	KeywordRank(ctx context.Context, keyword, itemID string) (float64, error)

	// KeywordRanks returns raw keyword relevance for every matching item in
	// the scope, keyed by item ID. Items absent from the map scored 0.
	KeywordRanks(ctx context.Context, scope model.Scope, keyword string) (map[string]float64, error)

	// PutItems inserts or replaces items and maintains the keyword index.
	PutItems(ctx context.Context, items []model.SearchableItem) error

	// Close releases resources.
	Close() error
}

// ConversationStorage persists reasoning transcripts between turns.
// Implementations can use different backends (memory, SQLite).
type ConversationStorage interface {
	// Save saves the transcript for a session.
	Save(ctx context.Context, sessionID string, transcript []model.ConversationTurn) error

	// Load loads the transcript for a session.
	// Returns an empty slice (not nil) if the session doesn't exist.
	Load(ctx context.Context, sessionID string) ([]model.ConversationTurn, error)

	// Delete removes a session's transcript.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all session IDs.
	ListSessions(ctx context.Context) ([]string, error)
}
