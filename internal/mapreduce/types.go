package mapreduce

import "recall-ai/internal/storage"

// Batch groups items for one map task. The union of a job's batches covers
// the filtered item set exactly once.
type Batch struct {
	Index int
	Items []storage.KnowledgeItem
}

// ChunkCount returns the total number of chunks across the batch's items.
func (b *Batch) ChunkCount() int {
	total := 0
	for _, item := range b.Items {
		total += len(item.Chunks)
	}
	return total
}

// ExtractedEntry is one structured datum pulled out of a batch by the map
// phase.
type ExtractedEntry struct {
	Source   string  `json:"source"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Date     string  `json:"date,omitempty"`
	Category string  `json:"category,omitempty"`
}

// MapResult is the outcome of one batch extraction. A failed batch stands in
// with Error set and Relevant false; it never blocks other batches.
type MapResult struct {
	BatchIndex    int              `json:"batch_index"`
	Relevant      bool             `json:"relevant"`
	ExtractedData []ExtractedEntry `json:"extracted_data,omitempty"`
	Themes        []string         `json:"themes,omitempty"`
	KeyPoints     []string         `json:"key_points,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	ItemCount     int              `json:"item_count"`
	Error         string           `json:"error,omitempty"`
}

// CategoryStats accumulates per-category counts and totals.
type CategoryStats struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// AggregationSummary is the deterministic reduction over all map results'
// extracted data. It is the source of truth for every numeric claim in the
// final answer.
type AggregationSummary struct {
	Total      float64                  `json:"total"`
	Count      int                      `json:"count"`
	Average    float64                  `json:"average"`
	ByCategory map[string]CategoryStats `json:"by_category"`
	ByMonth    map[string]CategoryStats `json:"by_month"`
	TopItems   []ExtractedEntry         `json:"top_items"`
	AllItems   []ExtractedEntry         `json:"all_items"`
}

// QueryResult is what the orchestrator hands back to the caller once the
// pipeline finishes.
type QueryResult struct {
	Response     string
	Sources      []string
	ContextCount int
}
