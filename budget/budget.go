// Package budget shapes how much retrieved data is fed back into the model.
//
// Each operation kind gets a fraction of the overall token ceiling,
// reflecting that a broad pattern scan needs far more supporting evidence
// per unit of output than a narrow synthesis task.
package budget

import (
	"github.com/richinex/chronica/model"
)

// OperationKind classifies consumers of budgeted evidence.
type OperationKind string

const (
	KindPatternScan     OperationKind = "pattern_scan"
	KindStatistical     OperationKind = "statistical"
	KindDecisionSupport OperationKind = "decision_support"
	KindSynthesis       OperationKind = "synthesis"
	KindRetrievalFeed   OperationKind = "retrieval_feed"
)

// CharsPerToken is the fixed character-to-token estimation ratio.
const CharsPerToken = 4

// DefaultFractions maps operation kinds to their share of the token ceiling.
var DefaultFractions = map[OperationKind]float64{
	KindPatternScan:     0.90,
	KindStatistical:     0.60,
	KindDecisionSupport: 0.50,
	KindSynthesis:       0.40,
	KindRetrievalFeed:   0.75,
}

// Manager selects the largest budget-fitting prefix of ranked items.
type Manager struct {
	maxTokens int
	fractions map[OperationKind]float64
}

// NewManager creates a manager with the given overall token ceiling.
// Zero or negative maxTokens falls back to 8192.
func NewManager(maxTokens int) *Manager {
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &Manager{maxTokens: maxTokens, fractions: DefaultFractions}
}

// WithFractions overrides the per-kind budget fractions.
func (m *Manager) WithFractions(fractions map[OperationKind]float64) *Manager {
	m.fractions = fractions
	return m
}

// Allotment returns the token budget available to one operation kind.
// Unknown kinds get the synthesis fraction, the most conservative one.
func (m *Manager) Allotment(kind OperationKind) int {
	frac, ok := m.fractions[kind]
	if !ok {
		frac = DefaultFractions[KindSynthesis]
	}
	return int(float64(m.maxTokens) * frac)
}

// EstimateTokens approximates the token cost of an item's text payload.
func EstimateTokens(item model.SearchableItem) int {
	n := len(item.Text)
	if n == 0 {
		// Metric-only rows still serialize to a small JSON object.
		n = 64
	}
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Select greedily takes candidates in ranked order until the next item would
// exceed the operation's allotted budget. Items are never partially included.
// Same candidates and budget always produce the same selection.
func (m *Manager) Select(candidates []model.RankedItem, kind OperationKind) []model.RankedItem {
	allotment := m.Allotment(kind)

	selected := make([]model.RankedItem, 0, len(candidates))
	used := 0
	for _, ri := range candidates {
		cost := EstimateTokens(ri.Item)
		if used+cost > allotment {
			break
		}
		used += cost
		selected = append(selected, ri)
	}
	return selected
}

// SelectWithin is Select against an explicit ceiling instead of the
// manager's configured one.
func SelectWithin(candidates []model.RankedItem, kind OperationKind, maxTokens int) []model.RankedItem {
	return NewManager(maxTokens).Select(candidates, kind)
}
