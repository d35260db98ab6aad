// Package ranking combines independent relevance signals into one score.
//
// Information Hiding:
// - Weight normalization over present signals hidden
// - Decay and similarity math hidden behind small pure functions
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/richinex/chronica/model"
)

// Weights is a query-conditioned weight set for the four signals plus the
// recency half-life the decay uses. A zero HalfLifeDays means no decay
// (effectively infinite half-life).
type Weights struct {
	Similarity   float64
	Recency      float64
	Keyword      float64
	Magnitude    float64
	HalfLifeDays float64
}

// Named presets. The numeric values are empirically chosen defaults; the
// property tests pin down their qualitative behavior, not the literal
// constants.
var (
	// PresetRecent serves "latest"-style intents: recency dominates and
	// the half-life is short, so meaning never beats freshness.
	PresetRecent = Weights{Similarity: 0.05, Recency: 0.80, Keyword: 0.10, Magnitude: 0.05, HalfLifeDays: 21}

	// PresetSemantic serves meaning-driven questions.
	PresetSemantic = Weights{Similarity: 0.65, Recency: 0.15, Keyword: 0.15, Magnitude: 0.05, HalfLifeDays: 90}

	// PresetPattern serves lifelong-pattern scans: recency is near zero
	// and decay is disabled.
	PresetPattern = Weights{Similarity: 0.50, Recency: 0.0, Keyword: 0.30, Magnitude: 0.20, HalfLifeDays: 0}

	// PresetBalanced is the default when no intent is recognizable.
	PresetBalanced = Weights{Similarity: 0.40, Recency: 0.30, Keyword: 0.20, Magnitude: 0.10, HalfLifeDays: 60}
)

// MetricScale maps raw metric values onto [0,1]. Analytics metrics in this
// system live on a 0..10 scale.
const MetricScale = 10.0

// PresetByName looks up a preset by its advertised name.
func PresetByName(name string) (Weights, bool) {
	switch name {
	case "recent":
		return PresetRecent, true
	case "semantic":
		return PresetSemantic, true
	case "pattern":
		return PresetPattern, true
	case "balanced":
		return PresetBalanced, true
	default:
		return Weights{}, false
	}
}

// SelectPreset picks a weight preset from the requested sort mode and recency
// half-life. An explicit half-life from the query overrides the preset's own.
func SelectPreset(sortMode model.SortMode, halfLifeDays float64) Weights {
	var w Weights
	switch {
	case sortMode == model.SortDateDesc || sortMode == model.SortDateAsc:
		w = PresetRecent
	case halfLifeDays > 365:
		w = PresetPattern
	case halfLifeDays > 0 && halfLifeDays <= 30:
		w = PresetRecent
	default:
		w = PresetBalanced
	}
	if halfLifeDays > 0 && halfLifeDays <= 365 {
		w.HalfLifeDays = halfLifeDays
	}
	return w
}

// CosineSimilarity returns the cosine of the angle between a and b, clamped
// to [0,1]. Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// RecencyDecay halves an item's contribution every halfLifeDays.
// halfLifeDays <= 0 disables decay. Future timestamps clamp to age zero.
func RecencyDecay(age time.Duration, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 1
	}
	days := age.Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Exp(-math.Ln2 * days / halfLifeDays)
}

// NormalizeMetric maps a raw metric value onto [0,1] using the fixed scale.
func NormalizeMetric(v float64) float64 {
	n := v / MetricScale
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// KeywordScorer produces a normalized [0,1] keyword relevance for an item.
type KeywordScorer func(item model.SearchableItem) float64

// Inputs carries the per-query signal sources for one ranking pass.
type Inputs struct {
	// QueryEmbedding is the embedded similarity phrase; nil when the query
	// carries no phrase, which zeroes and excludes the similarity signal.
	QueryEmbedding []float32

	// Keyword is the query keyword; empty excludes the keyword signal.
	Keyword string

	// KeywordScore scores one item against Keyword. May be nil.
	KeywordScore KeywordScorer

	// MetricRequested includes the magnitude signal in the weighting.
	// Items without a metric value then contribute 0 under its full weight.
	MetricRequested bool

	// Now anchors recency ages, so ranking stays reproducible in tests.
	Now time.Time
}

// Rank scores candidates against the query weights and returns them sorted by
// descending combined score, truncated to limit. Ties break by timestamp
// descending. Zero candidates yield an empty list, not an error.
//
// The combined score is a weighted mean over the signals the query actually
// requested: an absent phrase or keyword removes that weight from the
// denominator entirely, while a per-item missing input (no embedding, no
// metric) contributes 0 under its full weight.
func Rank(candidates []model.SearchableItem, w Weights, in Inputs, limit int) []model.RankedItem {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	ranked := make([]model.RankedItem, 0, len(candidates))
	for _, item := range candidates {
		sc := score(item, w, in, now)
		ranked = append(ranked, model.RankedItem{
			Item:   item,
			Scores: sc,
			Provenance: model.Provenance{
				Store:      string(item.Scope),
				ParentID:   item.ParentID,
				FragmentID: item.FragmentID,
			},
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Scores.Combined != ranked[j].Scores.Combined {
			return ranked[i].Scores.Combined > ranked[j].Scores.Combined
		}
		return ranked[i].Item.Timestamp.After(ranked[j].Item.Timestamp)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func score(item model.SearchableItem, w Weights, in Inputs, now time.Time) model.ScoreComponents {
	var sc model.ScoreComponents
	var sum, weightSum float64

	if len(in.QueryEmbedding) > 0 {
		sc.Similarity = CosineSimilarity(in.QueryEmbedding, item.Embedding)
		sum += w.Similarity * sc.Similarity
		weightSum += w.Similarity
	}

	sc.Recency = RecencyDecay(now.Sub(item.Timestamp), w.HalfLifeDays)
	sum += w.Recency * sc.Recency
	weightSum += w.Recency

	if in.Keyword != "" {
		if in.KeywordScore != nil {
			sc.Keyword = in.KeywordScore(item)
		}
		sum += w.Keyword * sc.Keyword
		weightSum += w.Keyword
	}

	if in.MetricRequested {
		if item.Metric != nil {
			sc.Magnitude = NormalizeMetric(*item.Metric)
		}
		sum += w.Magnitude * sc.Magnitude
		weightSum += w.Magnitude
	}

	if weightSum > 0 {
		sc.Combined = sum / weightSum
	}
	return sc
}
