package intent

// Intent types, ordered roughly by execution cost.
const (
	IntentQuickQA             = "quick_qa"
	IntentAggregation         = "aggregation"
	IntentFullFolderSummary   = "full_folder_summary"
	IntentFilteredAggregation = "filtered_aggregation"
)

// DefaultFilterThreshold is the minimum cosine similarity an item's first
// chunk must reach to survive a semantic pre-filter.
const DefaultFilterThreshold = 0.3

// ExtractionSchema tells the map phase what to pull out of each batch.
type ExtractionSchema struct {
	ExtractNumbers    bool     `json:"extract_numbers"`
	ExtractDates      bool     `json:"extract_dates"`
	ExtractCategories bool     `json:"extract_categories"`
	Fields            []string `json:"fields,omitempty"`
}

// FilterCriteria narrows the item set before batching.
type FilterCriteria struct {
	SemanticFilter string  `json:"semantic_filter,omitempty"`
	DateRange      string  `json:"date_range,omitempty"`
	Threshold      float64 `json:"threshold,omitempty"`
}

// Plan is the classifier's decision about how a query should be executed.
// It is derived per query and never persisted beyond the job it spawns.
type Plan struct {
	IntentType           string            `json:"intent_type"`
	Confidence           float64           `json:"confidence"`
	Reasoning            string            `json:"reasoning,omitempty"`
	RequiresFullScan     bool              `json:"requires_full_scan"`
	RequiresAsync        bool              `json:"requires_async"`
	EstimatedItems       int               `json:"estimated_items"`
	EstimatedTimeSeconds float64           `json:"estimated_time_seconds"`
	ExtractionSchema     *ExtractionSchema `json:"extraction_schema,omitempty"`
	FilterCriteria       *FilterCriteria   `json:"filter_criteria,omitempty"`
}

// Scan reports whether the plan routes through the map-reduce pipeline
// rather than the quick retrieval path.
func (p *Plan) Scan() bool {
	switch p.IntentType {
	case IntentAggregation, IntentFullFolderSummary, IntentFilteredAggregation:
		return true
	}
	return false
}

// Summary reports whether the plan's reduce phase synthesizes themes rather
// than numeric aggregates.
func (p *Plan) Summary() bool {
	return p.IntentType == IntentFullFolderSummary
}

// enrich fills in the cost estimate and the sync/async decision. Both
// classifier variants share this step so that identical inputs always produce
// identical estimates.
func enrich(plan *Plan, folderItemCounts map[string]int) {
	totalItems := 0
	for _, count := range folderItemCounts {
		totalItems += count
	}

	switch {
	case plan.IntentType == IntentQuickQA:
		// Top-k retrieval cost only.
		plan.EstimatedItems = 10
	case plan.FilterCriteria != nil && plan.FilterCriteria.SemanticFilter != "":
		// Empirical selectivity of a semantic pre-filter.
		plan.EstimatedItems = int(float64(totalItems) * 0.35)
	default:
		plan.EstimatedItems = totalItems
	}

	reduceCost := 1.0
	if plan.EstimatedItems > 50 {
		reduceCost = 2.0
	}
	plan.EstimatedTimeSeconds = 1.0 + float64(plan.EstimatedItems)/10.0 + reduceCost
	plan.RequiresAsync = plan.EstimatedTimeSeconds > 5
}
