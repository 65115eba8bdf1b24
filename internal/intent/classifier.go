package intent

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_classifier.go -package=mocks recall-ai/internal/intent Classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"recall-ai/internal/contextutil"
	"recall-ai/internal/llm"
)

// Completer is the slice of the LLM client the classifier consumes.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.CompletionParams) (string, error)
}

// Classifier maps a raw query plus corpus size into an execution plan.
type Classifier interface {
	// Classify never fails outward: implementations must degrade to a
	// deterministic plan on any internal error.
	Classify(ctx context.Context, query string, folderIDs []string, folderItemCounts map[string]int) Plan
}

const classifierSystemPrompt = `You are a query intent classifier for a personal knowledge base.
Classify the user's query into exactly one intent type:
- "quick_qa": a specific question answerable from a handful of relevant documents.
- "aggregation": asks for totals, sums, counts, or averages across many documents.
- "full_folder_summary": asks for a summary or overview of a whole folder.
- "filtered_aggregation": an aggregation restricted to a described subset (e.g. "total of all food receipts").

Respond with JSON only, no prose, matching this shape:
{
  "intent_type": "...",
  "confidence": 0.0,
  "reasoning": "...",
  "requires_full_scan": false,
  "extraction_schema": {"extract_numbers": false, "extract_dates": false, "extract_categories": false, "fields": []},
  "filter_criteria": {"semantic_filter": "", "date_range": ""}
}
For filtered_aggregation, set filter_criteria.semantic_filter to a short description of the subset.
For aggregation intents, set the extraction_schema flags for what must be extracted.`

// LLMClassifier asks the completion model for a plan and falls back to the
// keyword classifier on any failure. This is the production Classifier.
type LLMClassifier struct {
	completer Completer
	fallback  *HeuristicClassifier
}

// NewLLMClassifier creates a new LLMClassifier.
func NewLLMClassifier(completer Completer) *LLMClassifier {
	return &LLMClassifier{
		completer: completer,
		fallback:  NewHeuristicClassifier(),
	}
}

// Classify returns the model's plan, or the keyword fallback's plan when the
// model call fails or returns something unparseable.
func (c *LLMClassifier) Classify(ctx context.Context, query string, folderIDs []string, folderItemCounts map[string]int) Plan {
	logger := contextutil.LoggerFromContext(ctx)

	plan, err := c.classifyWithModel(ctx, query, folderItemCounts)
	if err != nil {
		logger.WarnContext(ctx, "intent classification fell back to keywords", "error", err)
		return c.fallback.Classify(ctx, query, folderIDs, folderItemCounts)
	}

	enrich(&plan, folderItemCounts)
	logger.InfoContext(ctx, "query classified",
		"intent_type", plan.IntentType,
		"confidence", plan.Confidence,
		"estimated_items", plan.EstimatedItems,
		"requires_async", plan.RequiresAsync)
	return plan
}

func (c *LLMClassifier) classifyWithModel(ctx context.Context, query string, folderItemCounts map[string]int) (Plan, error) {
	totalItems := 0
	for _, count := range folderItemCounts {
		totalItems += count
	}

	messages := []llm.Message{
		{Role: "system", Content: classifierSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Corpus size: %d items.\nQuery: %s", totalItems, query)},
	}

	raw, err := c.completer.Complete(ctx, messages, llm.CompletionParams{
		MaxTokens:   500,
		Temperature: 0.1,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("classification completion failed: %w", err)
	}

	plan, err := parsePlan(raw)
	if err != nil {
		return Plan{}, fmt.Errorf("classification output unparseable: %w", err)
	}
	return plan, nil
}

// parsePlan decodes the model's JSON, tolerating markdown code fences, and
// rejects anything that does not name a known intent type.
func parsePlan(raw string) (Plan, error) {
	cleaned := stripCodeFence(raw)

	var plan Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return Plan{}, err
	}

	switch plan.IntentType {
	case IntentQuickQA, IntentAggregation, IntentFullFolderSummary, IntentFilteredAggregation:
	default:
		return Plan{}, fmt.Errorf("unknown intent type %q", plan.IntentType)
	}

	if plan.Confidence < 0 {
		plan.Confidence = 0
	}
	if plan.Confidence > 1 {
		plan.Confidence = 1
	}
	if plan.FilterCriteria != nil {
		if plan.FilterCriteria.SemanticFilter == "" && plan.FilterCriteria.DateRange == "" {
			plan.FilterCriteria = nil
		} else if plan.FilterCriteria.Threshold == 0 {
			plan.FilterCriteria.Threshold = DefaultFilterThreshold
		}
	}
	return plan, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
