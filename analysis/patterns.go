// Pattern detection: recurring themes across the corpus.
package analysis

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/richinex/chronica/model"
)

// themeOccurrence ties a theme mention back to its evidence item.
type themeOccurrence struct {
	itemID string
	ts     time.Time
	metric *float64
	tokens map[string]bool
}

// detectPatterns groups recurring themes and reports first/last occurrence,
// recurrence count, flare-up windows, likely triggers and protective
// factors. Candidates below the configured minimum recurrence or time span
// are dropped to avoid single-occurrence noise.
func detectPatterns(items []model.RankedItem, cfg Config) PatternPayload {
	minRec := cfg.minRecurrence()
	minSpan := cfg.minSpanMonths()

	byTheme := map[string][]themeOccurrence{}
	for _, ri := range items {
		tokens := significantTokens(ri.Item.Text)
		occ := themeOccurrence{
			itemID: ri.Item.ID,
			ts:     ri.Item.Timestamp,
			metric: ri.Item.Metric,
			tokens: tokens,
		}
		for tok := range tokens {
			byTheme[tok] = append(byTheme[tok], occ)
		}
	}

	var patterns []ThemePattern
	for theme, occs := range byTheme {
		if len(occs) < minRec {
			continue
		}
		sort.Slice(occs, func(i, j int) bool { return occs[i].ts.Before(occs[j].ts) })

		first, last := occs[0].ts, occs[len(occs)-1].ts
		span := monthsBetween(first, last)
		if span < minSpan {
			continue
		}

		patterns = append(patterns, ThemePattern{
			Theme:       theme,
			FirstSeen:   first,
			LastSeen:    last,
			Occurrences: len(occs),
			SpanMonths:  span,
			FlareUps:    flareUps(occs),
			Triggers:    coFactors(occs, func(m *float64) bool { return m != nil && *m < 5 }),
			Protective:  coFactors(occs, func(m *float64) bool { return m != nil && *m >= 7 }),
		})
	}

	// Most recurrent themes first; name breaks ties deterministically.
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Occurrences != patterns[j].Occurrences {
			return patterns[i].Occurrences > patterns[j].Occurrences
		}
		return patterns[i].Theme < patterns[j].Theme
	})

	return PatternPayload{Patterns: patterns, Scanned: len(items)}
}

// flareUps returns the months where a theme's density is at least twice its
// monthly average.
func flareUps(occs []themeOccurrence) []FlareWindow {
	byMonth := map[string]int{}
	for _, o := range occs {
		byMonth[o.ts.Format("2006-01")]++
	}
	if len(byMonth) == 0 {
		return nil
	}
	avg := float64(len(occs)) / float64(len(byMonth))

	var flares []FlareWindow
	for month, count := range byMonth {
		if float64(count) >= 2*avg && count >= 2 {
			flares = append(flares, FlareWindow{Month: month, Count: count})
		}
	}
	sort.Slice(flares, func(i, j int) bool { return flares[i].Month < flares[j].Month })
	return flares
}

// coFactors ranks the tokens co-occurring with the theme inside evidence
// items selected by the metric predicate, with supporting-evidence counts.
func coFactors(occs []themeOccurrence, keep func(*float64) bool) []EvidenceCount {
	counts := map[string]int{}
	for _, o := range occs {
		if !keep(o.metric) {
			continue
		}
		for tok := range o.tokens {
			counts[tok]++
		}
	}

	factors := make([]EvidenceCount, 0, len(counts))
	for tok, n := range counts {
		if n < 2 {
			continue
		}
		factors = append(factors, EvidenceCount{Name: tok, Evidence: n})
	}
	sort.Slice(factors, func(i, j int) bool {
		if factors[i].Evidence != factors[j].Evidence {
			return factors[i].Evidence > factors[j].Evidence
		}
		return factors[i].Name < factors[j].Name
	})
	if len(factors) > 3 {
		factors = factors[:3]
	}
	return factors
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// stopWords are too common to count as themes.
var stopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true,
	"an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"because": true, "been": true, "but": true, "by": true, "can": true,
	"could": true, "day": true, "did": true, "do": true, "for": true,
	"from": true, "get": true, "got": true, "had": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "how": true,
	"i": true, "if": true, "in": true, "is": true, "it": true, "its": true,
	"just": true, "like": true, "me": true, "more": true, "my": true,
	"no": true, "not": true, "now": true, "of": true, "on": true,
	"one": true, "or": true, "our": true, "out": true, "really": true,
	"she": true, "so": true, "some": true, "that": true, "the": true,
	"their": true, "them": true, "then": true, "there": true, "they": true,
	"this": true, "time": true, "to": true, "today": true, "up": true,
	"very": true, "was": true, "we": true, "went": true, "were": true,
	"what": true, "when": true, "will": true, "with": true, "would": true,
	"you": true,
}

// significantTokens lowercases, splits and drops stop words and short runs.
func significantTokens(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) < 3 || stopWords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}
