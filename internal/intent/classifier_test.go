package intent

import (
	"context"
	"errors"
	"testing"

	"recall-ai/internal/llm"
)

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, _ []llm.Message, _ llm.CompletionParams) (string, error) {
	s.calls++
	return s.response, s.err
}

func TestHeuristicClassifier_KeywordTable(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantIntent string
	}{
		{"total keyword", "what is the total of my December receipts", IntentAggregation},
		{"how many keyword", "How many receipts do I have?", IntentAggregation},
		{"average keyword", "average spend per month", IntentAggregation},
		{"summarize keyword", "summarize my meeting notes", IntentFullFolderSummary},
		{"tell me about keyword", "tell me about this folder", IntentFullFolderSummary},
		{"plain question", "where did I park yesterday", IntentQuickQA},
		{"empty query", "", IntentQuickQA},
	}

	classifier := NewHeuristicClassifier()
	counts := map[string]int{"folder-1": 20}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := classifier.Classify(context.Background(), tt.query, nil, counts)
			if plan.IntentType != tt.wantIntent {
				t.Errorf("Classify(%q) intent = %q, want %q", tt.query, plan.IntentType, tt.wantIntent)
			}
			if plan.Confidence != heuristicConfidence {
				t.Errorf("Classify(%q) confidence = %v, want %v", tt.query, plan.Confidence, heuristicConfidence)
			}
		})
	}
}

func TestHeuristicClassifier_Idempotent(t *testing.T) {
	classifier := NewHeuristicClassifier()
	counts := map[string]int{"folder-1": 120}

	first := classifier.Classify(context.Background(), "total expenses", nil, counts)
	for i := 0; i < 5; i++ {
		again := classifier.Classify(context.Background(), "total expenses", nil, counts)
		if again != first {
			t.Fatalf("Classify() not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestHeuristicClassifier_AggregationSchema(t *testing.T) {
	classifier := NewHeuristicClassifier()

	plan := classifier.Classify(context.Background(), "sum of all receipts", nil, map[string]int{"f": 5})
	if !plan.RequiresFullScan {
		t.Error("aggregation plan should require a full scan")
	}
	if plan.ExtractionSchema == nil || !plan.ExtractionSchema.ExtractNumbers {
		t.Errorf("aggregation plan schema = %+v, want numbers extraction", plan.ExtractionSchema)
	}
}

func TestEnrich_EstimationPolicy(t *testing.T) {
	tests := []struct {
		name      string
		plan      Plan
		counts    map[string]int
		wantItems int
		wantTime  float64
		wantAsync bool
	}{
		{
			name:      "quick_qa ignores corpus size",
			plan:      Plan{IntentType: IntentQuickQA},
			counts:    map[string]int{"f": 1000},
			wantItems: 10,
			wantTime:  3.0, // 1 + 10/10 + 1
			wantAsync: false,
		},
		{
			name:      "full scan small corpus stays sync",
			plan:      Plan{IntentType: IntentAggregation},
			counts:    map[string]int{"f": 30},
			wantItems: 30,
			wantTime:  5.0, // 1 + 3 + 1, exactly at the threshold
			wantAsync: false,
		},
		{
			name:      "full scan large corpus goes async",
			plan:      Plan{IntentType: IntentAggregation},
			counts:    map[string]int{"f": 100},
			wantItems: 100,
			wantTime:  13.0, // 1 + 10 + 2
			wantAsync: true,
		},
		{
			name: "semantic filter applies selectivity",
			plan: Plan{
				IntentType:     IntentFilteredAggregation,
				FilterCriteria: &FilterCriteria{SemanticFilter: "food receipts"},
			},
			counts:    map[string]int{"a": 100, "b": 100},
			wantItems: 70, // 35% of 200
			wantTime:  10.0,
			wantAsync: true,
		},
		{
			name:      "empty corpus",
			plan:      Plan{IntentType: IntentFullFolderSummary},
			counts:    nil,
			wantItems: 0,
			wantTime:  2.0,
			wantAsync: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enrich(&tt.plan, tt.counts)
			if tt.plan.EstimatedItems != tt.wantItems {
				t.Errorf("EstimatedItems = %d, want %d", tt.plan.EstimatedItems, tt.wantItems)
			}
			if tt.plan.EstimatedTimeSeconds != tt.wantTime {
				t.Errorf("EstimatedTimeSeconds = %v, want %v", tt.plan.EstimatedTimeSeconds, tt.wantTime)
			}
			if tt.plan.RequiresAsync != tt.wantAsync {
				t.Errorf("RequiresAsync = %v, want %v", tt.plan.RequiresAsync, tt.wantAsync)
			}
		})
	}
}

func TestLLMClassifier_ModelPlan(t *testing.T) {
	completer := &stubCompleter{response: `{
		"intent_type": "filtered_aggregation",
		"confidence": 0.92,
		"reasoning": "subset aggregation",
		"requires_full_scan": true,
		"extraction_schema": {"extract_numbers": true, "extract_categories": true},
		"filter_criteria": {"semantic_filter": "food receipts"}
	}`}

	classifier := NewLLMClassifier(completer)
	plan := classifier.Classify(context.Background(), "total of all food receipts", nil, map[string]int{"f": 200})

	if plan.IntentType != IntentFilteredAggregation {
		t.Errorf("intent = %q, want filtered_aggregation", plan.IntentType)
	}
	if plan.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", plan.Confidence)
	}
	if plan.FilterCriteria == nil || plan.FilterCriteria.Threshold != DefaultFilterThreshold {
		t.Errorf("filter criteria = %+v, want default threshold", plan.FilterCriteria)
	}
	if plan.EstimatedItems != 70 {
		t.Errorf("estimated items = %d, want 70", plan.EstimatedItems)
	}
	if !plan.RequiresAsync {
		t.Error("plan should require async execution")
	}
}

func TestLLMClassifier_CodeFencedOutput(t *testing.T) {
	completer := &stubCompleter{response: "```json\n{\"intent_type\": \"quick_qa\", \"confidence\": 0.8}\n```"}

	classifier := NewLLMClassifier(completer)
	plan := classifier.Classify(context.Background(), "where did I park", nil, nil)

	if plan.IntentType != IntentQuickQA || plan.Confidence != 0.8 {
		t.Errorf("plan = %+v, want quick_qa with confidence 0.8", plan)
	}
}

func TestLLMClassifier_FallbackOnError(t *testing.T) {
	completer := &stubCompleter{err: errors.New("upstream down")}

	classifier := NewLLMClassifier(completer)
	plan := classifier.Classify(context.Background(), "total expenses this month", nil, map[string]int{"f": 10})

	if plan.IntentType != IntentAggregation {
		t.Errorf("fallback intent = %q, want aggregation", plan.IntentType)
	}
	if plan.Confidence != heuristicConfidence {
		t.Errorf("fallback confidence = %v, want %v", plan.Confidence, heuristicConfidence)
	}
}

func TestLLMClassifier_FallbackOnMalformedOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "The query looks like an aggregation to me."},
		{"unknown intent", `{"intent_type": "mystery", "confidence": 0.9}`},
		{"empty response", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := NewLLMClassifier(&stubCompleter{response: tt.response})
			plan := classifier.Classify(context.Background(), "summarize this folder", nil, map[string]int{"f": 4})
			if plan.IntentType != IntentFullFolderSummary {
				t.Errorf("fallback intent = %q, want full_folder_summary", plan.IntentType)
			}
			if plan.Confidence != heuristicConfidence {
				t.Errorf("fallback confidence = %v, want %v", plan.Confidence, heuristicConfidence)
			}
		})
	}
}

func TestParsePlan_ConfidenceClamped(t *testing.T) {
	plan, err := parsePlan(`{"intent_type": "quick_qa", "confidence": 1.7}`)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if plan.Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", plan.Confidence)
	}
}

func TestParsePlan_EmptyFilterCriteriaDropped(t *testing.T) {
	plan, err := parsePlan(`{"intent_type": "aggregation", "filter_criteria": {"semantic_filter": "", "date_range": ""}}`)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if plan.FilterCriteria != nil {
		t.Errorf("filter criteria = %+v, want nil", plan.FilterCriteria)
	}
}
