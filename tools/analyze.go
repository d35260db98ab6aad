// Analysis tool - exposes the analysis router to the reasoning loop.
//
// Information Hiding:
// - Operation dispatch and memoization live in the router
// - Cache reference resolution hidden from the model

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/richinex/chronica/analysis"
	"github.com/richinex/chronica/model"
)

// AnalyzeTool runs a named analysis operation over retrieved items.
type AnalyzeTool struct {
	router *analysis.Router
}

// NewAnalyzeTool creates an analyze tool backed by the router.
func NewAnalyzeTool(router *analysis.Router) *AnalyzeTool {
	return &AnalyzeTool{router: router}
}

// analyzeRequest is the argument shape the model fills in. Evidence arrives
// either inline or as a cache reference; inline items win when both are set.
type analyzeRequest struct {
	Operation      string             `json:"operation" jsonschema:"enum=pattern_detection,enum=decision_support,enum=action_synthesis,enum=trend,enum=correlation,description=Which analysis to run"`
	CacheRef       string             `json:"cache_ref,omitempty" jsonschema:"description=Reference to a cached retrieval result to analyze"`
	Items          []model.RankedItem `json:"items,omitempty" jsonschema:"description=Inline ranked items to analyze instead of a cache_ref"`
	SecondCacheRef string             `json:"second_cache_ref,omitempty" jsonschema:"description=Second cached series (correlation only)"`
	SecondItems    []model.RankedItem `json:"second_items,omitempty" jsonschema:"description=Inline second series (correlation only)"`
	MinRecurrence  int                `json:"min_recurrence,omitempty" jsonschema:"description=Minimum occurrences for a pattern (default 3)"`
	MinSpanMonths  int                `json:"min_span_months,omitempty" jsonschema:"description=Minimum span in months for a pattern (default 2)"`
	Criteria       []string           `json:"criteria,omitempty" jsonschema:"description=Decision criteria"`
	Options        []string           `json:"options,omitempty" jsonschema:"description=Decision options to score"`
	Weights        []float64          `json:"weights,omitempty" jsonschema:"description=Per-criterion weights (default equal)"`
	Counterfactual bool               `json:"counterfactual,omitempty" jsonschema:"description=Include a counterfactual sketch (uses the language model)"`
	Categories     []string           `json:"categories,omitempty" jsonschema:"description=Life-area categories for action synthesis"`
	MaxSuggestions int                `json:"max_suggestions,omitempty" jsonschema:"description=Suggestion count, clamped to 5-10"`
}

// Metadata returns the tool metadata.
func (t *AnalyzeTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "analyze",
		Description: "Run an analysis over previously retrieved items: pattern_detection " +
			"(recurring themes, flare-ups, triggers), decision_support (score options " +
			"against criteria with citations), action_synthesis (concrete suggestions), " +
			"trend (metric slope over time), or correlation (two series by day). " +
			"Evidence comes from the cache_ref of a retrieve call, or inline via items.",
		Schema: schemaFor[analyzeRequest](),
	}
}

// Validate checks the arguments without running the operation.
func (t *AnalyzeTool) Validate(args json.RawMessage) error {
	var req analyzeRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return model.Validationf("invalid arguments: %v", err)
	}
	op, err := analysis.ParseOp(req.Operation)
	if err != nil {
		return err
	}
	if req.CacheRef == "" && len(req.Items) == 0 {
		return model.Validationf("either cache_ref or items is required")
	}
	if op == analysis.OpCorrelation && req.SecondCacheRef == "" && len(req.SecondItems) == 0 {
		return model.Validationf("correlation requires second_cache_ref or second_items")
	}
	return nil
}

// Execute runs the analysis.
func (t *AnalyzeTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req analyzeRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return FailureResult(model.Validationf("invalid arguments: %v", err)), nil
	}

	op, err := analysis.ParseOp(req.Operation)
	if err != nil {
		return FailureResult(err), nil
	}

	in := analysis.Inputs{
		CacheRef:       req.CacheRef,
		Items:          req.Items,
		SecondCacheRef: req.SecondCacheRef,
		SecondItems:    req.SecondItems,
	}
	cfg := analysis.Config{
		MinRecurrence:  req.MinRecurrence,
		MinSpanMonths:  req.MinSpanMonths,
		Criteria:       req.Criteria,
		Options:        req.Options,
		Weights:        req.Weights,
		Counterfactual: req.Counterfactual,
		Categories:     req.Categories,
		MaxSuggestions: req.MaxSuggestions,
	}

	res, err := t.router.Analyze(ctx, op, in, cfg)
	if err != nil {
		return FailureResult(err), nil
	}

	encoded, err := json.Marshal(res)
	if err != nil {
		return FailureResult(fmt.Errorf("encode analysis result: %w", err)), nil
	}
	return SuccessResult(string(encoded)), nil
}

var _ Tool = (*AnalyzeTool)(nil)
