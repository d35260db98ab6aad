// Decision support: score named options against a criterion list with
// evidence citations, and optionally a model-written counterfactual.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/chronica/llm"
	"github.com/richinex/chronica/model"
)

// citationLimit bounds citations per criterion so payloads stay small.
const citationLimit = 3

// decisionSupport produces a per-option per-criterion score with citations
// and a weighted aggregate per option. The scoring itself is deterministic;
// only the optional counterfactual narrative reaches the language model.
func (r *Router) decisionSupport(ctx context.Context, items []model.RankedItem, cfg Config) (DecisionPayload, error) {
	if len(cfg.Options) == 0 {
		return DecisionPayload{}, model.Validationf("decision_support requires at least one option")
	}
	if len(cfg.Criteria) == 0 {
		return DecisionPayload{}, model.Validationf("decision_support requires a criterion list")
	}
	if len(cfg.Weights) > 0 && len(cfg.Weights) != len(cfg.Criteria) {
		return DecisionPayload{}, model.Validationf(
			"got %d weights for %d criteria", len(cfg.Weights), len(cfg.Criteria))
	}

	payload := DecisionPayload{}
	for _, option := range cfg.Options {
		score := scoreOption(option, cfg, items)
		payload.Options = append(payload.Options, score)
	}

	if cfg.Counterfactual && r.chat != nil {
		narrative, err := r.counterfactual(ctx, payload, cfg)
		if err != nil {
			return DecisionPayload{}, fmt.Errorf("%w: counterfactual narrative: %v", model.ErrUpstreamFailure, err)
		}
		payload.Counterfactual = narrative
	}
	return payload, nil
}

// scoreOption scans the evidence for items mentioning both the option and
// each criterion; the score saturates with the citation count.
func scoreOption(option string, cfg Config, items []model.RankedItem) OptionScore {
	result := OptionScore{Option: option}
	optLower := strings.ToLower(option)

	var weighted, weightSum float64
	for i, criterion := range cfg.Criteria {
		critLower := strings.ToLower(criterion)

		var hits int
		var citations []string
		for _, ri := range items {
			text := strings.ToLower(ri.Item.Text)
			if !strings.Contains(text, optLower) || !strings.Contains(text, critLower) {
				continue
			}
			hits++
			if len(citations) < citationLimit {
				citations = append(citations, citation(ri.Item))
			}
		}

		// Saturating count: 1 hit = 0.33, 2 = 0.5, 5 = 0.71 ...
		score := float64(hits) / (float64(hits) + 2)
		result.Criteria = append(result.Criteria, CriterionScore{
			Criterion: criterion,
			Score:     score,
			Citations: citations,
		})

		w := 1.0
		if len(cfg.Weights) > 0 {
			w = cfg.Weights[i]
		}
		weighted += w * score
		weightSum += w
	}

	if weightSum > 0 {
		result.Weighted = weighted / weightSum
	}
	return result
}

// citation renders a short evidence reference: item id plus a snippet.
func citation(item model.SearchableItem) string {
	snippet := item.Text
	if len(snippet) > 80 {
		snippet = snippet[:80] + "..."
	}
	return fmt.Sprintf("%s (%s): %s", item.ID, item.Timestamp.Format("2006-01-02"), snippet)
}

// counterfactual asks the chat capability for a short what-if narrative over
// the already-computed scores. Never memoized.
func (r *Router) counterfactual(ctx context.Context, payload DecisionPayload, cfg Config) (string, error) {
	var sb strings.Builder
	sb.WriteString("Given these option scores from a personal journal analysis, ")
	sb.WriteString("write a short counterfactual narrative (3-4 sentences) describing ")
	sb.WriteString("the likely outcome if the lowest-scoring option were chosen instead ")
	sb.WriteString("of the highest-scoring one. Ground every claim in the scores given; ")
	sb.WriteString("do not invent evidence.\n\n")
	for _, opt := range payload.Options {
		fmt.Fprintf(&sb, "- %s: weighted %.2f\n", opt.Option, opt.Weighted)
	}

	return r.chat.Chat(ctx, []llm.ChatMessage{
		llm.SystemMessage("You are a careful decision analyst. Stay strictly within the given data."),
		llm.UserMessage(sb.String()),
	})
}
