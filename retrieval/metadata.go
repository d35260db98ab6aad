// Metadata derivation: confidence tiers and gap detection.
//
// Absence of data is itself a reportable fact; metadata is derived strictly
// from the ranked set and the query, never from textual content.
package retrieval

import (
	"sort"
	"time"

	"github.com/richinex/chronica/model"
)

// buildMetadata derives RetrieveMetadata from the final ranked set.
func (g *Gateway) buildMetadata(items []model.RankedItem, q model.Query) model.RetrieveMetadata {
	meta := model.RetrieveMetadata{Count: len(items)}

	if len(items) > 0 {
		from, to := items[0].Item.Timestamp, items[0].Item.Timestamp
		for _, ri := range items[1:] {
			ts := ri.Item.Timestamp
			if ts.Before(from) {
				from = ts
			}
			if ts.After(to) {
				to = ts
			}
		}
		meta.From, meta.To = from, to
	}

	hasSim := q.Phrase != ""
	if hasSim {
		meta.Similarity = similaritySpread(items)
	}

	meta.Gaps = g.detectGaps(items, q)
	meta.Confidence = g.classify(meta, hasSim, q)
	return meta
}

// similaritySpread computes the median and interquartile range of the
// similarity components.
func similaritySpread(items []model.RankedItem) model.SimilaritySpread {
	if len(items) == 0 {
		return model.SimilaritySpread{}
	}
	sims := make([]float64, len(items))
	for i, ri := range items {
		sims[i] = ri.Scores.Similarity
	}
	sort.Float64s(sims)
	return model.SimilaritySpread{
		Median: quantile(sims, 0.5),
		IQR:    quantile(sims, 0.75) - quantile(sims, 0.25),
	}
}

// quantile interpolates the q-th quantile of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// classify assigns the confidence tier from count and similarity spread only.
func (g *Gateway) classify(meta model.RetrieveMetadata, hasSim bool, q model.Query) model.Confidence {
	o := g.opts
	if hasSim {
		switch {
		case meta.Count >= o.HighCount && meta.Similarity.Median >= o.HighSim:
			return model.ConfidenceHigh
		case meta.Count >= o.MediumCount && meta.Similarity.Median >= o.MediumSim:
			return model.ConfidenceMedium
		default:
			return model.ConfidenceLow
		}
	}

	fullCoverage := q.Start == nil || q.End == nil || len(meta.Gaps) == 0
	switch {
	case meta.Count >= o.HighCount && fullCoverage:
		return model.ConfidenceHigh
	case meta.Count >= o.MediumCount:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// detectGaps partitions the requested date range by the observed timestamps
// and reports every silent span longer than the configured minimum. Without
// an explicit requested range there is nothing to partition.
func (g *Gateway) detectGaps(items []model.RankedItem, q model.Query) []model.DateGap {
	if q.Start == nil || q.End == nil {
		return nil
	}

	minGap := time.Duration(g.opts.MinGapDays) * 24 * time.Hour
	day := 24 * time.Hour

	if len(items) == 0 {
		if q.End.Sub(*q.Start) >= minGap {
			return []model.DateGap{{Start: *q.Start, End: *q.End}}
		}
		return nil
	}

	stamps := make([]time.Time, len(items))
	for i, ri := range items {
		stamps[i] = ri.Item.Timestamp
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	var gaps []model.DateGap

	// Leading silence.
	if stamps[0].Sub(*q.Start) > minGap {
		gaps = append(gaps, model.DateGap{Start: *q.Start, End: stamps[0].Add(-day)})
	}

	// Silence between consecutive observations. The reported gap spans the
	// first and last fully silent days.
	for i := 1; i < len(stamps); i++ {
		silent := stamps[i].Sub(stamps[i-1]) - day
		if silent > minGap {
			gaps = append(gaps, model.DateGap{
				Start: stamps[i-1].Add(day),
				End:   stamps[i].Add(-day),
			})
		}
	}

	// Trailing silence.
	if q.End.Sub(stamps[len(stamps)-1]) > minGap {
		gaps = append(gaps, model.DateGap{Start: stamps[len(stamps)-1].Add(day), End: *q.End})
	}

	return gaps
}
