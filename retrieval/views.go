// Output views over a ranked result set.
package retrieval

import (
	"fmt"
	"sort"

	"github.com/richinex/chronica/model"
	"github.com/richinex/chronica/ranking"
)

// BucketRow is one time bucket of the aggregated view.
type BucketRow struct {
	Bucket    string   `json:"bucket"`
	Count     int      `json:"count"`
	MetricAvg *float64 `json:"metric_avg,omitempty"`
}

// MetricStats summarizes the metric values of a result set without
// enumerating items.
type MetricStats struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// HistogramBin is one bin of the metric value histogram.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// bucketize groups items by calendar bucket, ordered chronologically.
func bucketize(items []model.RankedItem, bucket model.Bucket) []BucketRow {
	if bucket == "" {
		bucket = model.BucketDay
	}

	type agg struct {
		count     int
		metricSum float64
		metricN   int
	}
	groups := map[string]*agg{}

	for _, ri := range items {
		key := bucketKey(ri, bucket)
		a := groups[key]
		if a == nil {
			a = &agg{}
			groups[key] = a
		}
		a.count++
		if ri.Item.Metric != nil {
			a.metricSum += *ri.Item.Metric
			a.metricN++
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]BucketRow, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		row := BucketRow{Bucket: k, Count: a.count}
		if a.metricN > 0 {
			avg := a.metricSum / float64(a.metricN)
			row.MetricAvg = &avg
		}
		rows = append(rows, row)
	}
	return rows
}

func bucketKey(ri model.RankedItem, bucket model.Bucket) string {
	ts := ri.Item.Timestamp
	switch bucket {
	case model.BucketWeek:
		year, week := ts.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case model.BucketMonth:
		return ts.Format("2006-01")
	case model.BucketYear:
		return ts.Format("2006")
	default:
		return ts.Format("2006-01-02")
	}
}

// metricStats aggregates scalar statistics over items carrying a metric.
func metricStats(items []model.RankedItem) *MetricStats {
	stats := &MetricStats{}
	var sum float64
	for _, ri := range items {
		if ri.Item.Metric == nil {
			continue
		}
		v := *ri.Item.Metric
		if stats.Count == 0 || v < stats.Min {
			stats.Min = v
		}
		if stats.Count == 0 || v > stats.Max {
			stats.Max = v
		}
		sum += v
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Avg = sum / float64(stats.Count)
	}
	return stats
}

// histogramBins is the number of equal-width bins over the metric scale.
const histogramBins = 10

// histogram counts metric values into fixed bins over [0, MetricScale].
func histogram(items []model.RankedItem) []HistogramBin {
	width := ranking.MetricScale / float64(histogramBins)
	bins := make([]HistogramBin, histogramBins)
	for i := range bins {
		bins[i].Low = float64(i) * width
		bins[i].High = float64(i+1) * width
	}

	for _, ri := range items {
		if ri.Item.Metric == nil {
			continue
		}
		idx := int(*ri.Item.Metric / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= histogramBins {
			idx = histogramBins - 1
		}
		bins[idx].Count++
	}
	return bins
}
