package mapreduce

import (
	"encoding/json"
	"fmt"
	"strings"

	"recall-ai/internal/intent"
)

// maxItemContentChars truncates each item's content in the batch context so a
// single long document cannot blow the completion window.
const maxItemContentChars = 2000

// batchContext renders a batch's items into the document block handed to the
// map prompt.
func batchContext(batch Batch) string {
	var b strings.Builder
	for i, item := range batch.Items {
		content := item.Content
		if len(content) > maxItemContentChars {
			content = content[:maxItemContentChars] + "..."
		}
		fmt.Fprintf(&b, "--- Document %d: %s ---\n%s\n\n", i+1, item.Title, content)
	}
	return b.String()
}

const mapSystemPrompt = `You extract structured data from documents. Respond with JSON only, no prose:
{
  "relevant": true,
  "extracted_data": [{"source": "document title", "value": 0.0, "unit": "", "date": "YYYY-MM-DD", "category": ""}],
  "summary": "one sentence about what these documents contain"
}
Set "relevant" to false with an empty "extracted_data" when none of the documents relate to the query.
Every "value" must be a number that literally appears in a document. Never invent values.`

const mapSummarySystemPrompt = `You summarize documents. Respond with JSON only, no prose:
{
  "relevant": true,
  "themes": ["recurring topic"],
  "key_points": ["specific fact worth keeping"],
  "summary": "one sentence about what these documents contain"
}
Set "relevant" to false when the documents contain nothing of substance.`

// mapUserPrompt builds the per-batch user message.
func mapUserPrompt(query string, plan *intent.Plan, batch Batch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)

	if schema := plan.ExtractionSchema; schema != nil && !plan.Summary() {
		var wants []string
		if schema.ExtractNumbers {
			wants = append(wants, "numeric values")
		}
		if schema.ExtractDates {
			wants = append(wants, "dates")
		}
		if schema.ExtractCategories {
			wants = append(wants, "categories")
		}
		if len(schema.Fields) > 0 {
			wants = append(wants, "fields: "+strings.Join(schema.Fields, ", "))
		}
		if len(wants) > 0 {
			fmt.Fprintf(&b, "Extract: %s.\n\n", strings.Join(wants, "; "))
		}
	}

	b.WriteString("Documents:\n\n")
	b.WriteString(batchContext(batch))
	return b.String()
}

// reduceUserPrompt builds the synthesis message. For aggregation intents the
// model is given the precomputed numbers and told to use them verbatim; for
// summaries it gets the collected themes and key points.
func reduceUserPrompt(query string, plan *intent.Plan, summary AggregationSummary, themes, keyPoints []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)

	if plan.Summary() {
		b.WriteString("Themes found across the documents:\n")
		for _, theme := range themes {
			fmt.Fprintf(&b, "- %s\n", theme)
		}
		b.WriteString("\nKey points:\n")
		for _, point := range keyPoints {
			fmt.Fprintf(&b, "- %s\n", point)
		}
		b.WriteString("\nWrite a cohesive answer to the query from these themes and key points.")
		return b.String()
	}

	stats, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		stats = []byte("{}")
	}
	b.WriteString("Precomputed aggregation over the documents:\n")
	b.Write(stats)
	b.WriteString("\n\nAnswer the query using EXACTLY these precomputed numbers. Do not recalculate, re-derive, or round them differently.")
	return b.String()
}

const reduceSystemPrompt = `You answer questions over a personal knowledge base. You are given precomputed statistics or collected notes; base your answer strictly on them. Be concise and concrete.`

// parseMapResult decodes a map call's JSON output, tolerating code fences.
func parseMapResult(raw string, batchIndex, itemCount int) (MapResult, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var result MapResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return MapResult{}, fmt.Errorf("map output unparseable: %w", err)
	}
	result.BatchIndex = batchIndex
	result.ItemCount = itemCount
	return result, nil
}
