// Retrieval gateway: the single entry point for structured queries.
//
// Information Hiding:
// - Preset selection from query intent hidden
// - Filter-then-rank pipeline hidden
// - Confidence and gap derivation hidden in metadata.go
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/richinex/chronica/model"
	"github.com/richinex/chronica/ranking"
	"github.com/richinex/chronica/storage"
)

// Embedder turns a phrase into a vector. The gateway only needs this one
// capability from the LLM layer.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options tunes metadata derivation. Zero values take the defaults below.
type Options struct {
	// MinGapDays is the minimum silent span reported as a gap.
	MinGapDays int

	// Confidence tier thresholds.
	HighCount    int
	HighSim      float64
	MediumCount  int
	MediumSim    float64

	// Now anchors recency; overridable for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MinGapDays <= 0 {
		o.MinGapDays = 7
	}
	if o.HighCount <= 0 {
		o.HighCount = 50
	}
	if o.HighSim <= 0 {
		o.HighSim = 0.6
	}
	if o.MediumCount <= 0 {
		o.MediumCount = 10
	}
	if o.MediumSim <= 0 {
		o.MediumSim = 0.4
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result is the gateway's answer: exactly one view field is populated,
// selected by the query's view, plus metadata that is always present.
type Result struct {
	Items     []model.RankedItem     `json:"items,omitempty"`
	Buckets   []BucketRow            `json:"buckets,omitempty"`
	Stats     *MetricStats           `json:"stats,omitempty"`
	Histogram []HistogramBin         `json:"histogram,omitempty"`
	Metadata  model.RetrieveMetadata `json:"metadata"`
}

// Gateway validates, fetches, filters, ranks and shapes retrieval queries.
// Read-only over the store.
type Gateway struct {
	store    storage.ItemStore
	keywords *KeywordAdapter
	embedder Embedder
	logger   *log.Logger
	opts     Options
}

// NewGateway creates a gateway. embedder may be nil, which disables the
// similarity signal (phrase queries then rank on the remaining signals).
func NewGateway(store storage.ItemStore, embedder Embedder, logger *log.Logger, opts Options) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		store:    store,
		keywords: NewKeywordAdapter(store),
		embedder: embedder,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// Retrieve runs one structured query. Filtering always precedes ranking.
func (g *Gateway) Retrieve(ctx context.Context, q model.Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	weights, err := g.selectWeights(q)
	if err != nil {
		return Result{}, err
	}

	filter := storage.ItemFilter{Start: q.Start, End: q.End, IDs: q.IDs}
	candidates, err := g.store.ListItems(ctx, q.Scope, filter)
	if err != nil {
		return Result{}, fmt.Errorf("listing %s: %w", q.Scope, err)
	}

	inputs := ranking.Inputs{
		Keyword:         q.Keyword,
		MetricRequested: q.Metric != "",
		Now:             g.opts.Now(),
	}

	if q.Phrase != "" && g.embedder != nil {
		emb, err := g.embedder.Embed(ctx, q.Phrase)
		if err != nil {
			return Result{}, fmt.Errorf("embedding phrase: %w", err)
		}
		inputs.QueryEmbedding = emb
	}

	if q.Keyword != "" {
		scorer, err := g.keywords.Scorer(ctx, q.Scope, q.Keyword)
		if err != nil {
			return Result{}, fmt.Errorf("keyword ranks: %w", err)
		}
		inputs.KeywordScore = scorer
	}

	limit := q.EffectiveLimit()

	// Rank everything first; date sorts reorder the scored set afterwards so
	// truncation keeps the newest (or oldest) items, never the most similar.
	ranked := ranking.Rank(candidates, weights, inputs, 0)
	switch q.Sort {
	case model.SortDateDesc:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Item.Timestamp.After(ranked[j].Item.Timestamp)
		})
	case model.SortDateAsc:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Item.Timestamp.Before(ranked[j].Item.Timestamp)
		})
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	meta := g.buildMetadata(ranked, q)
	g.logger.Debug("retrieve",
		"scope", q.Scope, "candidates", len(candidates),
		"returned", len(ranked), "confidence", meta.Confidence)

	res := Result{Metadata: meta}
	switch q.View {
	case "", model.ViewRaw:
		res.Items = ranked
	case model.ViewBuckets:
		res.Buckets = bucketize(ranked, q.Bucket)
	case model.ViewStats:
		res.Stats = metricStats(ranked)
	case model.ViewHistogram:
		res.Histogram = histogram(ranked)
	}
	return res, nil
}

// selectWeights picks the ranking preset: an explicit preset name wins,
// otherwise the sort mode and half-life determine intent.
func (g *Gateway) selectWeights(q model.Query) (ranking.Weights, error) {
	if q.Preset != "" {
		w, ok := ranking.PresetByName(q.Preset)
		if !ok {
			return ranking.Weights{}, model.Validationf("unknown preset: %q", q.Preset)
		}
		if q.HalfLifeDays > 0 {
			w.HalfLifeDays = q.HalfLifeDays
		}
		return w, nil
	}
	return ranking.SelectPreset(q.Sort, q.HalfLifeDays), nil
}
