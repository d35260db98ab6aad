// Action synthesis: a bounded, category-balanced list of concrete
// suggestions derived from current-state signals in the evidence.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/richinex/chronica/model"
)

// defaultCategories apply when the caller requests no balance categories.
var defaultCategories = []string{"health", "relationships", "work", "rest"}

// signal is a stressor or protective factor extracted from the evidence.
type signal struct {
	token    string
	count    int
	positive bool
	evidence []string
}

// synthesizeActions produces 5-10 suggestions balanced across the requested
// life-area categories, each with a concrete first step, an effort estimate
// and a rationale tied to specific evidence items.
func synthesizeActions(items []model.RankedItem, cfg Config) (ActionPayload, error) {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = defaultCategories
	}
	maxN := cfg.maxSuggestions()

	signals := extractSignals(items)
	if len(signals) == 0 {
		// No usable signals still yields generic per-category suggestions
		// rather than an empty answer.
		signals = []signal{{token: "recent events", count: 1, positive: false}}
	}

	// Round-robin across categories so no category dominates.
	var suggestions []Suggestion
	for i := 0; len(suggestions) < maxN && i < maxN*2; i++ {
		sig := signals[i%len(signals)]
		category := categories[len(suggestions)%len(categories)]
		suggestions = append(suggestions, buildSuggestion(category, sig))
		if len(suggestions) >= maxN {
			break
		}
	}

	return ActionPayload{Suggestions: suggestions}, nil
}

// extractSignals splits frequent evidence tokens into stressors (low-metric
// items) and protective factors (high-metric items), strongest first.
func extractSignals(items []model.RankedItem) []signal {
	type acc struct {
		low, high int
		evidence  []string
	}
	counts := map[string]*acc{}

	for _, ri := range items {
		if ri.Item.Metric == nil {
			continue
		}
		m := *ri.Item.Metric
		for tok := range significantTokens(ri.Item.Text) {
			a := counts[tok]
			if a == nil {
				a = &acc{}
				counts[tok] = a
			}
			switch {
			case m < 5:
				a.low++
			case m >= 7:
				a.high++
			}
			if len(a.evidence) < 3 {
				a.evidence = append(a.evidence, ri.Item.ID)
			}
		}
	}

	var signals []signal
	for tok, a := range counts {
		if a.low >= 2 {
			signals = append(signals, signal{token: tok, count: a.low, positive: false, evidence: a.evidence})
		} else if a.high >= 2 {
			signals = append(signals, signal{token: tok, count: a.high, positive: true, evidence: a.evidence})
		}
	}
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].count != signals[j].count {
			return signals[i].count > signals[j].count
		}
		return signals[i].token < signals[j].token
	})
	return signals
}

func buildSuggestion(category string, sig signal) Suggestion {
	if sig.positive {
		return Suggestion{
			Category:  category,
			Action:    fmt.Sprintf("Do more of what involves %q", sig.token),
			FirstStep: fmt.Sprintf("Block 30 minutes this week for %s", sig.token),
			Effort:    effortFor(sig.count),
			Rationale: fmt.Sprintf(
				"%q shows up in %d of your better days; protective factors are worth scheduling deliberately",
				sig.token, sig.count),
			EvidenceIDs: sig.evidence,
		}
	}
	return Suggestion{
		Category:  category,
		Action:    fmt.Sprintf("Reduce exposure to %q", sig.token),
		FirstStep: fmt.Sprintf("Write down the next situation where %s comes up, and one way to change it", sig.token),
		Effort:    effortFor(sig.count),
		Rationale: fmt.Sprintf(
			"%q appears in %d of your harder days (%s)",
			sig.token, sig.count, strings.Join(sig.evidence, ", ")),
		EvidenceIDs: sig.evidence,
	}
}

// effortFor maps evidence density to a coarse effort estimate: recurring
// stressors need structural change, occasional ones a small nudge.
func effortFor(count int) string {
	switch {
	case count >= 6:
		return "large"
	case count >= 3:
		return "medium"
	default:
		return "small"
	}
}
