// Statistical transforms: trend fitting and correlation.
// Both are deterministic and participate in memoization.
package analysis

import (
	"math"

	"github.com/richinex/chronica/model"
)

// fitTrend runs a least-squares line through (age-in-days, metric) pairs.
func fitTrend(items []model.RankedItem) TrendPayload {
	var xs, ys []float64
	var t0 float64
	for _, ri := range items {
		if ri.Item.Metric == nil {
			continue
		}
		day := float64(ri.Item.Timestamp.Unix()) / 86400
		if len(xs) == 0 {
			t0 = day
		}
		xs = append(xs, day-t0)
		ys = append(ys, *ri.Item.Metric)
	}

	n := len(xs)
	payload := TrendPayload{N: n, Direction: "flat"}
	if n < 2 {
		return payload
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	den := float64(n)*sumXX - sumX*sumX
	if den == 0 {
		return payload
	}

	payload.SlopePerDay = (float64(n)*sumXY - sumX*sumY) / den
	payload.Intercept = (sumY - payload.SlopePerDay*sumX) / float64(n)

	// Treat less than a hundredth of a point per day as noise.
	switch {
	case payload.SlopePerDay > 0.01:
		payload.Direction = "rising"
	case payload.SlopePerDay < -0.01:
		payload.Direction = "falling"
	}
	return payload
}

// correlate aligns the two series by calendar day and computes Pearson's r
// over the aligned metric pairs.
func correlate(a, b []model.RankedItem) CorrelationPayload {
	byDay := func(items []model.RankedItem) map[string]float64 {
		m := map[string]float64{}
		for _, ri := range items {
			if ri.Item.Metric == nil {
				continue
			}
			m[ri.Item.Timestamp.Format("2006-01-02")] = *ri.Item.Metric
		}
		return m
	}

	left, right := byDay(a), byDay(b)
	var xs, ys []float64
	for day, x := range left {
		if y, ok := right[day]; ok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}

	n := len(xs)
	if n < 2 {
		return CorrelationPayload{N: n}
	}

	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return CorrelationPayload{N: n}
	}
	return CorrelationPayload{
		Pearson: cov / math.Sqrt(varX*varY),
		N:       n,
	}
}
