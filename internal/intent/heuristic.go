package intent

import (
	"context"
	"strings"
)

// Keyword tables for the deterministic classifier. Matching is substring
// based over the lowercased query, so "How many receipts?" hits "how many".
var (
	aggregationKeywords = []string{"total", "sum", "count", "how many", "average", "all"}
	summaryKeywords     = []string{"summarize", "overview", "summary", "tell me about"}
)

// heuristicConfidence is the fixed confidence of keyword classification. It
// is intentionally low so that downstream consumers can tell a fallback plan
// from a model-backed one.
const heuristicConfidence = 0.3

// HeuristicClassifier classifies queries by keyword matching alone. It is
// fully deterministic and is the fallback behind the LLM-backed classifier.
type HeuristicClassifier struct{}

// NewHeuristicClassifier creates a new HeuristicClassifier.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// Classify maps a query to a plan using the keyword tables. It never fails.
func (c *HeuristicClassifier) Classify(_ context.Context, query string, _ []string, folderItemCounts map[string]int) Plan {
	lowered := strings.ToLower(query)

	plan := Plan{
		IntentType: IntentQuickQA,
		Confidence: heuristicConfidence,
		Reasoning:  "keyword classification",
	}

	switch {
	case containsAny(lowered, aggregationKeywords):
		plan.IntentType = IntentAggregation
		plan.RequiresFullScan = true
		plan.ExtractionSchema = &ExtractionSchema{
			ExtractNumbers:    true,
			ExtractDates:      true,
			ExtractCategories: true,
		}
	case containsAny(lowered, summaryKeywords):
		plan.IntentType = IntentFullFolderSummary
		plan.RequiresFullScan = true
	}

	enrich(&plan, folderItemCounts)
	return plan
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
