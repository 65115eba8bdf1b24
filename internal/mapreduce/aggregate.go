package mapreduce

import "sort"

// topItemsLimit caps how many entries the summary's top list carries.
const topItemsLimit = 20

// aggregate deterministically reduces all map results' extracted data. It
// uses no LLM and is reproducible given the same map results regardless of
// their completion order: sums, counts and category maps are commutative, and
// the item lists are ordered by (batch index, extraction order).
func aggregate(results []MapResult) AggregationSummary {
	summary := AggregationSummary{
		ByCategory: make(map[string]CategoryStats),
		ByMonth:    make(map[string]CategoryStats),
	}

	ordered := make([]MapResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].BatchIndex < ordered[j].BatchIndex
	})

	for _, result := range ordered {
		if !result.Relevant {
			continue
		}
		for _, entry := range result.ExtractedData {
			summary.Total += entry.Value
			summary.Count++
			summary.AllItems = append(summary.AllItems, entry)

			if entry.Category != "" {
				stats := summary.ByCategory[entry.Category]
				stats.Count++
				stats.Total += entry.Value
				summary.ByCategory[entry.Category] = stats
			}
			if month := monthKey(entry.Date); month != "" {
				stats := summary.ByMonth[month]
				stats.Count++
				stats.Total += entry.Value
				summary.ByMonth[month] = stats
			}
		}
	}

	if summary.Count > 0 {
		summary.Average = summary.Total / float64(summary.Count)
	}

	top := make([]ExtractedEntry, len(summary.AllItems))
	copy(top, summary.AllItems)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Value > top[j].Value
	})
	if len(top) > topItemsLimit {
		top = top[:topItemsLimit]
	}
	summary.TopItems = top

	return summary
}

// monthKey extracts "YYYY-MM" from a date string, or "" when the date does
// not start with that shape.
func monthKey(date string) string {
	if len(date) < 7 {
		return ""
	}
	for i, r := range date[:7] {
		if i == 4 {
			if r != '-' {
				return ""
			}
			continue
		}
		if r < '0' || r > '9' {
			return ""
		}
	}
	return date[:7]
}

// collectThemes gathers themes and key points across map results for summary
// intents, preserving batch order and dropping duplicates.
func collectThemes(results []MapResult) (themes, keyPoints []string) {
	ordered := make([]MapResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].BatchIndex < ordered[j].BatchIndex
	})

	seenTheme := make(map[string]struct{})
	seenPoint := make(map[string]struct{})
	for _, result := range ordered {
		if !result.Relevant {
			continue
		}
		for _, theme := range result.Themes {
			if _, ok := seenTheme[theme]; ok {
				continue
			}
			seenTheme[theme] = struct{}{}
			themes = append(themes, theme)
		}
		for _, point := range result.KeyPoints {
			if _, ok := seenPoint[point]; ok {
				continue
			}
			seenPoint[point] = struct{}{}
			keyPoints = append(keyPoints, point)
		}
	}
	return themes, keyPoints
}
