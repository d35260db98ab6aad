// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Scope identifies the data domain a retrieval query targets.
type Scope string

const (
	// ScopeEntries is full journal entries.
	ScopeEntries Scope = "entries"
	// ScopeFragments is text fragments split out of entries.
	ScopeFragments Scope = "fragments"
	// ScopeAnalytics is derived numeric analytics rows (e.g. daily happiness).
	ScopeAnalytics Scope = "analytics"
	// ScopeSummaries is periodic summaries generated elsewhere in the system.
	ScopeSummaries Scope = "summaries"
)

// Scopes lists all supported scopes.
func Scopes() []Scope {
	return []Scope{ScopeEntries, ScopeFragments, ScopeAnalytics, ScopeSummaries}
}

// ParseScope parses a scope from string (case-insensitive).
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(s)) {
	case ScopeEntries, ScopeFragments, ScopeAnalytics, ScopeSummaries:
		return Scope(strings.ToLower(s)), nil
	default:
		return "", Validationf("unknown scope: %q", s)
	}
}

// SearchableItem is one retrievable unit: a journal entry, a fragment of one,
// or a derived analytics/summary row. Immutable once produced by a store.
type SearchableItem struct {
	ID         string    `json:"id"`
	Scope      Scope     `json:"scope"`
	Timestamp  time.Time `json:"timestamp"`
	Text       string    `json:"text,omitempty"`
	Embedding  []float32 `json:"-"`
	Metric     *float64  `json:"metric,omitempty"`
	ParentID   string    `json:"parent_id,omitempty"`
	FragmentID string    `json:"fragment_id,omitempty"`
}

// HasEmbedding reports whether the item carries an embedding vector.
func (it SearchableItem) HasEmbedding() bool {
	return len(it.Embedding) > 0
}

// SortMode selects how retrieval results are ordered.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortDateDesc  SortMode = "date_desc"
	SortDateAsc   SortMode = "date_asc"
)

// View selects the output shape of a retrieval.
type View string

const (
	ViewRaw       View = "raw"
	ViewBuckets   View = "buckets"
	ViewStats     View = "stats"
	ViewHistogram View = "histogram"
)

// Bucket is the grouping granularity for the bucketed view.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

// Query is a structured retrieval request. Constructed fresh per call and
// never mutated after Validate.
type Query struct {
	Scope        Scope      `json:"scope"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	IDs          []string   `json:"ids,omitempty"`
	Phrase       string     `json:"phrase,omitempty"`
	Keyword      string     `json:"keyword,omitempty"`
	Metric       string     `json:"metric,omitempty"`
	HalfLifeDays float64    `json:"half_life_days,omitempty"`
	Sort         SortMode   `json:"sort,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	View         View       `json:"view,omitempty"`
	Bucket       Bucket     `json:"bucket,omitempty"`
	Preset       string     `json:"preset,omitempty"`
}

// MaxQueryLimit bounds how many items one retrieval may return.
const MaxQueryLimit = 500

// DefaultQueryLimit applies when the caller gives no limit.
const DefaultQueryLimit = 50

// Validate checks the query before any I/O is done.
func (q *Query) Validate() error {
	if _, err := ParseScope(string(q.Scope)); err != nil {
		return err
	}
	if q.Limit < 0 || q.Limit > MaxQueryLimit {
		return Validationf("limit %d out of range [0,%d]", q.Limit, MaxQueryLimit)
	}
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		return Validationf("date range end %s before start %s",
			q.End.Format(time.DateOnly), q.Start.Format(time.DateOnly))
	}
	switch q.Sort {
	case "", SortRelevance, SortDateDesc, SortDateAsc:
	default:
		return Validationf("unknown sort mode: %q", q.Sort)
	}
	switch q.View {
	case "", ViewRaw, ViewBuckets, ViewStats, ViewHistogram:
	default:
		return Validationf("unknown view: %q", q.View)
	}
	switch q.Bucket {
	case "", BucketDay, BucketWeek, BucketMonth, BucketYear:
	default:
		return Validationf("unknown bucket: %q", q.Bucket)
	}
	if q.HalfLifeDays < 0 {
		return Validationf("half_life_days must be non-negative, got %g", q.HalfLifeDays)
	}
	return nil
}

// EffectiveLimit returns the limit with the default applied.
func (q *Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}

// ScoreComponents holds the four independent sub-scores and their combination.
// Each component is in [0,1]. Computed per item per query, never persisted.
type ScoreComponents struct {
	Similarity float64 `json:"similarity"`
	Recency    float64 `json:"recency"`
	Keyword    float64 `json:"keyword"`
	Magnitude  float64 `json:"magnitude"`
	Combined   float64 `json:"combined"`
}

// Provenance links a ranked item back to its originating record.
type Provenance struct {
	Store      string `json:"store"`
	ParentID   string `json:"parent_id,omitempty"`
	FragmentID string `json:"fragment_id,omitempty"`
}

// RankedItem is a SearchableItem plus its scores and provenance.
type RankedItem struct {
	Item       SearchableItem  `json:"item"`
	Scores     ScoreComponents `json:"scores"`
	Provenance Provenance      `json:"provenance"`
}

// Confidence is a coarse classification of how trustworthy a retrieval is.
// Strictly a function of item count and similarity distribution.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Weaker reports whether c is a weaker tier than other.
func (c Confidence) Weaker(other Confidence) bool {
	return c.rank() < other.rank()
}

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// DateGap is a span inside the requested range with no data. A gap is a
// reportable fact, not an error.
type DateGap struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the gap length in whole days.
func (g DateGap) Days() int {
	return int(g.End.Sub(g.Start).Hours() / 24)
}

// SimilaritySpread summarizes the similarity distribution of a result set.
type SimilaritySpread struct {
	Median float64 `json:"median"`
	IQR    float64 `json:"iqr"`
}

// RetrieveMetadata describes a retrieval result set. Derived deterministically
// from the ranked set; never fabricated when data is absent.
type RetrieveMetadata struct {
	Count      int              `json:"count"`
	From       time.Time        `json:"from,omitempty"`
	To         time.Time        `json:"to,omitempty"`
	Similarity SimilaritySpread `json:"similarity"`
	Confidence Confidence       `json:"confidence"`
	Gaps       []DateGap        `json:"gaps,omitempty"`
}

// Step records a single step of the reasoning loop, for tracing.
type Step struct {
	Iteration   int
	Thought     string
	Action      *string
	Observation *string
}

// ToolCallStats contains metrics about one tool invocation.
type ToolCallStats struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}

func (s ToolCallStats) String() string {
	return fmt.Sprintf("%s (%dms, ok=%v)", s.Name, s.DurationMs, s.Success)
}
