// Analysis router: resolves inputs, budgets evidence, dispatches operations.
//
// Information Hiding:
// - Cache reference resolution hidden
// - Memoization of statistical operations hidden
// - Budget application hidden
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/richinex/chronica/budget"
	"github.com/richinex/chronica/cache"
	"github.com/richinex/chronica/llm"
	"github.com/richinex/chronica/model"
)

// Router dispatches analysis operations over resolved inputs.
type Router struct {
	cache  *cache.ResultCache
	chat   *llm.Client // optional; nil disables model-backed narratives
	budget *budget.Manager
	logger *log.Logger

	mu   sync.Mutex
	memo map[uint64]json.RawMessage
}

// NewRouter creates a router. chat may be nil, which omits counterfactual
// narratives instead of failing.
func NewRouter(rc *cache.ResultCache, chat *llm.Client, bm *budget.Manager, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	if bm == nil {
		bm = budget.NewManager(0)
	}
	return &Router{
		cache:  rc,
		chat:   chat,
		budget: bm,
		logger: logger,
		memo:   make(map[uint64]json.RawMessage),
	}
}

// Analyze resolves inputs, applies the operation's token budget, and runs
// the transform. A missing cache reference fails with a NotFound condition
// rather than silently treating it as empty.
func (r *Router) Analyze(ctx context.Context, op Op, in Inputs, cfg Config) (Result, error) {
	start := time.Now()

	items, err := r.resolveItems(in.Items, in.CacheRef)
	if err != nil {
		return Result{}, err
	}
	second, err := r.resolveItems(in.SecondItems, in.SecondCacheRef)
	if err != nil {
		return Result{}, err
	}

	items = r.budget.Select(items, op.BudgetKind())

	var payload any
	memoKey, memoized := r.memoLookup(op, items, second, cfg)
	if memoized != nil {
		payload = memoized
	} else {
		switch op {
		case OpPatternDetection:
			payload = detectPatterns(items, cfg)
		case OpDecisionSupport:
			payload, err = r.decisionSupport(ctx, items, cfg)
		case OpActionSynthesis:
			payload, err = synthesizeActions(items, cfg)
		case OpTrend:
			payload = fitTrend(items)
		case OpCorrelation:
			payload = correlate(items, second)
		default:
			return Result{}, model.Validationf("unknown operation: %d", op)
		}
		if err != nil {
			return Result{}, err
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling %s payload: %w", op, err)
	}
	if memoized == nil && op.Memoizable() {
		r.memoStore(memoKey, raw)
	}

	res := Result{
		Operation:    op.String(),
		Payload:      raw,
		Confidence:   evidenceConfidence(len(items)),
		ElapsedMs:    uint64(time.Since(start).Milliseconds()),
		ApproxTokens: approxTokens(items, raw),
	}
	r.logger.Debug("analyze", "op", op.String(), "evidence", len(items), "confidence", res.Confidence)
	return res, nil
}

// resolveItems returns literal items, or loads and decodes a cached prior
// result when a reference is given. Literal items win if both are present.
func (r *Router) resolveItems(items []model.RankedItem, ref string) ([]model.RankedItem, error) {
	if len(items) > 0 || ref == "" {
		return items, nil
	}
	if r.cache == nil {
		return nil, model.NotFoundf("cached result %q: no cache configured", ref)
	}
	payload, err := r.cache.Get(ref)
	if err != nil {
		return nil, err
	}
	return decodeItems(payload, ref)
}

// decodeItems accepts either a bare ranked-item array or a retrieval result
// object carrying an "items" field.
func decodeItems(payload, ref string) ([]model.RankedItem, error) {
	var arr []model.RankedItem
	if err := json.Unmarshal([]byte(payload), &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}
	var obj struct {
		Items []model.RankedItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(payload), &obj); err == nil {
		return obj.Items, nil
	}
	return nil, model.Validationf("cached result %q does not contain ranked items", ref)
}

// evidenceConfidence uses the same count tiers as retrieval: the transform
// never inspects text to decide how much to trust itself.
func evidenceConfidence(n int) model.Confidence {
	switch {
	case n >= 50:
		return model.ConfidenceHigh
	case n >= 10:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func approxTokens(items []model.RankedItem, out []byte) int {
	total := len(out)
	for _, ri := range items {
		total += len(ri.Item.Text)
	}
	return total / budget.CharsPerToken
}

// memoLookup hashes op+inputs+config and returns a prior payload, if any.
// Only statistical operations participate.
func (r *Router) memoLookup(op Op, items, second []model.RankedItem, cfg Config) (uint64, json.RawMessage) {
	if !op.Memoizable() {
		return 0, nil
	}

	h := xxhash.New()
	_, _ = h.WriteString(op.String())
	enc := json.NewEncoder(h)
	_ = enc.Encode(items)
	_ = enc.Encode(second)
	_ = enc.Encode(cfg)
	key := h.Sum64()

	r.mu.Lock()
	defer r.mu.Unlock()
	return key, r.memo[key]
}

func (r *Router) memoStore(key uint64, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo[key] = payload
}
