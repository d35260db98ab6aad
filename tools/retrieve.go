// Retrieval tool - exposes the retrieval gateway to the reasoning loop.
//
// Information Hiding:
// - Query construction and date parsing hidden from the model
// - Oversized payload caching internalized (callers see a summary + ref)

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/richinex/chronica/cache"
	"github.com/richinex/chronica/model"
	"github.com/richinex/chronica/retrieval"
)

// RetrieveTool runs ranked retrieval over the timeline store.
type RetrieveTool struct {
	gateway *retrieval.Gateway
	results *cache.ResultCache
}

// NewRetrieveTool creates a retrieve tool backed by a gateway and result cache.
func NewRetrieveTool(gateway *retrieval.Gateway, results *cache.ResultCache) *RetrieveTool {
	return &RetrieveTool{gateway: gateway, results: results}
}

// retrieveRequest is the argument shape the model fills in.
type retrieveRequest struct {
	Scope        string   `json:"scope" jsonschema:"enum=entries,enum=fragments,enum=analytics,enum=summaries,description=Which item population to search"`
	Phrase       string   `json:"phrase,omitempty" jsonschema:"description=Natural-language phrase for semantic similarity"`
	Keyword      string   `json:"keyword,omitempty" jsonschema:"description=Exact keyword or tag to match"`
	Metric       string   `json:"metric,omitempty" jsonschema:"description=Metric selector; presence enables magnitude ranking"`
	Start        string   `json:"start,omitempty" jsonschema:"description=Inclusive start date (YYYY-MM-DD or RFC3339)"`
	End          string   `json:"end,omitempty" jsonschema:"description=Inclusive end date (YYYY-MM-DD or RFC3339)"`
	IDs          []string `json:"ids,omitempty" jsonschema:"description=Restrict to specific item ids"`
	Sort         string   `json:"sort,omitempty" jsonschema:"enum=relevance,enum=date_desc,enum=date_asc"`
	View         string   `json:"view,omitempty" jsonschema:"enum=raw,enum=buckets,enum=stats,enum=histogram"`
	Bucket       string   `json:"bucket,omitempty" jsonschema:"enum=day,enum=week,enum=month,enum=year"`
	Limit        int      `json:"limit,omitempty" jsonschema:"description=Maximum items to return (1-500)"`
	Preset       string   `json:"preset,omitempty" jsonschema:"enum=recent,enum=semantic,enum=pattern,enum=balanced"`
	HalfLifeDays float64  `json:"half_life_days,omitempty" jsonschema:"description=Recency half-life override in days"`
}

// Metadata returns the tool metadata.
func (t *RetrieveTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "retrieve",
		Description: "Search the personal timeline. Combines semantic similarity, recency, " +
			"keyword match, and metric magnitude into one ranking. Supports date ranges, " +
			"sort orders, and aggregate views (buckets, stats, histogram). Large result " +
			"sets are cached and returned as a summary with a cache_ref.",
		Schema: schemaFor[retrieveRequest](),
	}
}

// Validate checks the arguments without touching storage.
func (t *RetrieveTool) Validate(args json.RawMessage) error {
	q, err := parseRetrieveArgs(args)
	if err != nil {
		return err
	}
	return q.Validate()
}

// retrieveOutput is what the model sees. Metadata stays inline even when
// the item payload was swapped for a cache summary.
type retrieveOutput struct {
	Result   json.RawMessage        `json:"result,omitempty"`
	CacheRef string                 `json:"cache_ref,omitempty"`
	Summary  *cache.Summary         `json:"summary,omitempty"`
	Metadata model.RetrieveMetadata `json:"metadata"`
}

// Execute runs the retrieval and caches oversized payloads.
func (t *RetrieveTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	q, err := parseRetrieveArgs(args)
	if err != nil {
		return FailureResult(err), nil
	}

	res, err := t.gateway.Retrieve(ctx, q)
	if err != nil {
		return FailureResult(err), nil
	}

	full, err := json.Marshal(res)
	if err != nil {
		return FailureResult(fmt.Errorf("encode retrieval result: %w", err)), nil
	}

	out := retrieveOutput{Metadata: res.Metadata}
	if t.results != nil && t.results.ShouldCache(string(full)) {
		id := t.results.Put(string(full))
		summary := t.results.Summarize(id, string(full))
		out.CacheRef = id
		out.Summary = &summary
	} else {
		out.Result = full
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return FailureResult(fmt.Errorf("encode tool output: %w", err)), nil
	}
	return SuccessResult(string(encoded)), nil
}

func parseRetrieveArgs(args json.RawMessage) (model.Query, error) {
	var req retrieveRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return model.Query{}, model.Validationf("invalid arguments: %v", err)
	}

	q := model.Query{
		Scope:        model.Scope(req.Scope),
		Phrase:       req.Phrase,
		Keyword:      req.Keyword,
		Metric:       req.Metric,
		IDs:          req.IDs,
		Sort:         model.SortMode(req.Sort),
		View:         model.View(req.View),
		Bucket:       model.Bucket(req.Bucket),
		Limit:        req.Limit,
		Preset:       req.Preset,
		HalfLifeDays: req.HalfLifeDays,
	}

	if req.Start != "" {
		ts, err := parseDate(req.Start, false)
		if err != nil {
			return model.Query{}, model.Validationf("start: %v", err)
		}
		q.Start = &ts
	}
	if req.End != "" {
		ts, err := parseDate(req.End, true)
		if err != nil {
			return model.Query{}, model.Validationf("end: %v", err)
		}
		q.End = &ts
	}
	return q, nil
}

// parseDate accepts RFC3339 or bare dates. Bare end dates extend to the
// end of the day so date ranges stay inclusive.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	if endOfDay {
		ts = ts.Add(24*time.Hour - time.Nanosecond)
	}
	return ts, nil
}

var _ Tool = (*RetrieveTool)(nil)
