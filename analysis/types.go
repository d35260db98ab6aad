// Request, config and result types for analysis operations.
package analysis

import (
	"encoding/json"
	"time"

	"github.com/richinex/chronica/model"
)

// Inputs carries the evidence an operation works over: either literal ranked
// items or a reference to a cached prior result, resolved transparently
// before execution. Second* fields feed the correlation operation's other
// series.
type Inputs struct {
	Items          []model.RankedItem `json:"items,omitempty"`
	CacheRef       string             `json:"cache_ref,omitempty"`
	SecondItems    []model.RankedItem `json:"second_items,omitempty"`
	SecondCacheRef string             `json:"second_cache_ref,omitempty"`
}

// Config is the operation-specific option bag. Zero values take defaults.
type Config struct {
	// Pattern detection: noise floor before a candidate theme is reported.
	MinRecurrence int `json:"min_recurrence,omitempty"` // default 3
	MinSpanMonths int `json:"min_span_months,omitempty"` // default 2

	// Decision support.
	Criteria       []string  `json:"criteria,omitempty"`
	Options        []string  `json:"options,omitempty"`
	Weights        []float64 `json:"weights,omitempty"` // per criterion, default equal
	Counterfactual bool      `json:"counterfactual,omitempty"`

	// Action synthesis: life-area categories to balance across.
	Categories     []string `json:"categories,omitempty"`
	MaxSuggestions int      `json:"max_suggestions,omitempty"` // clamped to [5,10]
}

func (c Config) minRecurrence() int {
	if c.MinRecurrence <= 0 {
		return 3
	}
	return c.MinRecurrence
}

func (c Config) minSpanMonths() int {
	if c.MinSpanMonths <= 0 {
		return 2
	}
	return c.MinSpanMonths
}

func (c Config) maxSuggestions() int {
	n := c.MaxSuggestions
	if n < 5 {
		return 5
	}
	if n > 10 {
		return 10
	}
	return n
}

// Result is the outcome of one analysis operation.
type Result struct {
	Operation    string           `json:"operation"`
	Payload      json.RawMessage  `json:"payload"`
	Confidence   model.Confidence `json:"confidence"`
	ElapsedMs    uint64           `json:"elapsed_ms"`
	ApproxTokens int              `json:"approx_tokens"`
}

// EvidenceCount is a named factor with its supporting-evidence count.
type EvidenceCount struct {
	Name     string `json:"name"`
	Evidence int    `json:"evidence"`
}

// FlareWindow is a month where a theme's density spiked.
type FlareWindow struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// ThemePattern is one recurring theme found by pattern detection.
type ThemePattern struct {
	Theme       string          `json:"theme"`
	FirstSeen   time.Time       `json:"first_seen"`
	LastSeen    time.Time       `json:"last_seen"`
	Occurrences int             `json:"occurrences"`
	SpanMonths  int             `json:"span_months"`
	FlareUps    []FlareWindow   `json:"flare_ups,omitempty"`
	Triggers    []EvidenceCount `json:"triggers,omitempty"`
	Protective  []EvidenceCount `json:"protective,omitempty"`
}

// PatternPayload is the pattern detection result payload.
type PatternPayload struct {
	Patterns []ThemePattern `json:"patterns"`
	Scanned  int            `json:"scanned"`
}

// CriterionScore is one option's score against one criterion.
type CriterionScore struct {
	Criterion string   `json:"criterion"`
	Score     float64  `json:"score"` // [0,1]
	Citations []string `json:"citations,omitempty"`
}

// OptionScore is one option's full evaluation.
type OptionScore struct {
	Option   string           `json:"option"`
	Criteria []CriterionScore `json:"criteria"`
	Weighted float64          `json:"weighted"`
}

// DecisionPayload is the decision support result payload.
type DecisionPayload struct {
	Options        []OptionScore `json:"options"`
	Counterfactual string        `json:"counterfactual,omitempty"`
}

// Suggestion is one actionable recommendation.
type Suggestion struct {
	Category    string   `json:"category"`
	Action      string   `json:"action"`
	FirstStep   string   `json:"first_step"`
	Effort      string   `json:"effort"` // small | medium | large
	Rationale   string   `json:"rationale"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// ActionPayload is the action synthesis result payload.
type ActionPayload struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// TrendPayload is the trend fit result payload.
type TrendPayload struct {
	SlopePerDay float64 `json:"slope_per_day"`
	Intercept   float64 `json:"intercept"`
	N           int     `json:"n"`
	Direction   string  `json:"direction"` // rising | falling | flat
}

// CorrelationPayload is the correlation result payload.
type CorrelationPayload struct {
	Pearson float64 `json:"pearson"`
	N       int     `json:"n"` // aligned day pairs
}
