package mapreduce

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"recall-ai/internal/contextutil"
	"recall-ai/internal/intent"
	"recall-ai/internal/llm"
	"recall-ai/internal/search"
	"recall-ai/internal/storage"
)

// EmptyFolderResponse is returned when the resolved scope has no processed
// items. An empty corpus is a normal outcome, not an error.
const EmptyFolderResponse = "The specified folder appears to be empty or has no processed items yet."

// maxSources caps how many item titles are reported back as sources.
const maxSources = 10

// Completer is the slice of the LLM client the orchestrator consumes.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.CompletionParams) (string, error)
}

// Embedder embeds the semantic filter text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Config tunes the pipeline. Zero values fall back to the reference defaults.
type Config struct {
	BatchTargetChunks int
	Concurrency       int
	RetryAttempts     int
	RetryBackoff      time.Duration
	FilterThreshold   float64
}

func (c Config) withDefaults() Config {
	if c.BatchTargetChunks <= 0 {
		c.BatchTargetChunks = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.FilterThreshold <= 0 {
		c.FilterThreshold = intent.DefaultFilterThreshold
	}
	return c
}

// Orchestrator runs aggregation and summary queries as a two-phase map-reduce
// over the user's corpus, tracking progress on the job record. It is the
// single writer of job state for the jobs it executes.
type Orchestrator struct {
	completer Completer
	embedder  Embedder
	items     storage.ItemStore
	jobs      storage.JobStore
	cfg       Config
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(completer Completer, embedder Embedder, items storage.ItemStore, jobs storage.JobStore, cfg Config) *Orchestrator {
	return &Orchestrator{
		completer: completer,
		embedder:  embedder,
		items:     items,
		jobs:      jobs,
		cfg:       cfg.withDefaults(),
	}
}

// ProcessQuery executes the full pipeline for an async job and returns the
// final answer. Job state transitions are persisted as side effects; the
// caller polls job status separately. The context carries the overall job
// deadline; its expiry fails the job.
func (o *Orchestrator) ProcessQuery(ctx context.Context, job *storage.ProcessingJob, query string, plan *intent.Plan, folderIDs []string) (*QueryResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if err := o.jobs.UpdatePhase(ctx, job.ID, storage.JobStatusProcessing, storage.PhaseInitialization, 0.05); err != nil {
		return nil, fmt.Errorf("failed to start job: %w", err)
	}

	items, err := o.items.ListCompletedWithChunks(ctx, job.UserID, folderIDs)
	if err != nil {
		return nil, o.fail(ctx, job, storage.PhaseInitialization, fmt.Errorf("failed to load corpus: %w", err))
	}
	totalInFolder := len(items)

	if totalInFolder == 0 {
		result := map[string]any{"answer": EmptyFolderResponse, "context_count": 0}
		if err := o.jobs.MarkCompleted(ctx, job.ID, result, nil, time.Since(start).Seconds()); err != nil {
			return nil, fmt.Errorf("failed to complete empty job: %w", err)
		}
		logger.InfoContext(ctx, "job completed on empty corpus", "job_id", job.ID)
		return &QueryResult{Response: EmptyFolderResponse}, nil
	}

	strategy := "full_scan"
	if plan.FilterCriteria != nil && plan.FilterCriteria.SemanticFilter != "" {
		strategy = "semantic_filter"
		items, err = o.semanticFilter(ctx, items, plan.FilterCriteria)
		if err != nil {
			return nil, o.fail(ctx, job, storage.PhaseInitialization, err)
		}
	}

	batches := buildBatches(items, o.cfg.BatchTargetChunks)
	if err := o.jobs.SetTotals(ctx, job.ID, len(items), len(batches)); err != nil {
		return nil, o.fail(ctx, job, storage.PhaseInitialization, fmt.Errorf("failed to record totals: %w", err))
	}

	if o.cancelled(ctx, job) {
		return nil, errors.New("job cancelled")
	}

	if err := o.jobs.UpdatePhase(ctx, job.ID, storage.JobStatusProcessing, storage.PhaseMap, 0.1); err != nil {
		return nil, fmt.Errorf("failed to enter map phase: %w", err)
	}

	results, processedItems, failedBatches := o.runMapPhase(ctx, job, query, plan, batches)

	if o.cancelled(ctx, job) {
		return nil, errors.New("job cancelled")
	}

	if failedBatches == len(batches) {
		return nil, o.fail(ctx, job, storage.PhaseMap, errors.New("all batches failed"))
	}

	if err := o.jobs.UpdatePhase(ctx, job.ID, storage.JobStatusProcessing, storage.PhaseReduce, 0.85); err != nil {
		return nil, fmt.Errorf("failed to enter reduce phase: %w", err)
	}

	summary := aggregate(results)
	themes, keyPoints := collectThemes(results)

	if err := o.jobs.UpdatePhase(ctx, job.ID, storage.JobStatusProcessing, storage.PhaseSynthesis, 0.9); err != nil {
		return nil, fmt.Errorf("failed to enter synthesis phase: %w", err)
	}

	answer, err := o.synthesize(ctx, query, plan, summary, themes, keyPoints)
	if err != nil {
		return nil, o.fail(ctx, job, storage.PhaseSynthesis, err)
	}

	confidence := confidenceScore(plan, summary, results, failedBatches, len(batches))

	details := map[string]any{
		"summary": summary,
		"processing_info": map[string]any{
			"total_items_in_folder": totalInFolder,
			"items_processed":       processedItems,
			"items_skipped":         totalInFolder - len(items),
			"batches_processed":     len(batches) - failedBatches,
			"batches_failed":        failedBatches,
			"strategy":              strategy,
		},
		"top_items":  summary.TopItems,
		"confidence": confidence,
	}
	result := map[string]any{
		"answer":        answer,
		"confidence":    confidence,
		"context_count": processedItems,
	}

	if err := o.jobs.MarkCompleted(ctx, job.ID, result, details, time.Since(start).Seconds()); err != nil {
		return nil, fmt.Errorf("failed to complete job: %w", err)
	}

	logger.InfoContext(ctx, "job completed",
		"job_id", job.ID,
		"items", processedItems,
		"batches", len(batches),
		"batches_failed", failedBatches,
		"confidence", confidence,
		"duration_seconds", time.Since(start).Seconds())

	return &QueryResult{
		Response:     answer,
		Sources:      sourceTitles(items),
		ContextCount: processedItems,
	}, nil
}

// semanticFilter embeds the filter text once and keeps items whose first
// chunk scores at or above the threshold, best first.
func (o *Orchestrator) semanticFilter(ctx context.Context, items []storage.KnowledgeItem, criteria *intent.FilterCriteria) ([]storage.KnowledgeItem, error) {
	filterVec, err := o.embedder.EmbedText(ctx, criteria.SemanticFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to embed filter text: %w", err)
	}

	threshold := criteria.Threshold
	if threshold <= 0 {
		threshold = o.cfg.FilterThreshold
	}

	type scored struct {
		item  storage.KnowledgeItem
		score float64
	}
	kept := make([]scored, 0, len(items))
	for _, item := range items {
		var vec []float32
		if len(item.Chunks) > 0 {
			vec = item.Chunks[0].Embedding
		}
		score := search.Cosine(filterVec, vec)
		if score >= threshold {
			kept = append(kept, scored{item: item, score: score})
		}
	}

	// Insertion sort keeps the filter stable for equal scores.
	for i := 1; i < len(kept); i++ {
		for j := i; j > 0 && kept[j].score > kept[j-1].score; j-- {
			kept[j], kept[j-1] = kept[j-1], kept[j]
		}
	}

	filtered := make([]storage.KnowledgeItem, len(kept))
	for i, s := range kept {
		filtered[i] = s.item
	}
	return filtered, nil
}

// runMapPhase executes all batches concurrently under the semaphore. Failed
// batches are recorded as irrelevant placeholders; they never abort the run.
func (o *Orchestrator) runMapPhase(ctx context.Context, job *storage.ProcessingJob, query string, plan *intent.Plan, batches []Batch) (results []MapResult, processedItems, failedBatches int) {
	logger := contextutil.LoggerFromContext(ctx)

	results = make([]MapResult, len(batches))
	sem := make(chan struct{}, o.cfg.Concurrency)

	var mu sync.Mutex
	var wg sync.WaitGroup
	doneBatches := 0

	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch Batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := o.mapBatch(ctx, query, plan, batch)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				logger.WarnContext(ctx, "batch extraction failed",
					"job_id", job.ID, "batch", batch.Index, "error", err)
				result = MapResult{
					BatchIndex: batch.Index,
					Relevant:   false,
					ItemCount:  len(batch.Items),
					Error:      err.Error(),
				}
				failedBatches++
			} else {
				processedItems += len(batch.Items)
			}
			results[i] = result

			doneBatches++
			progress := 0.1 + 0.75*float64(doneBatches)/float64(len(batches))
			if perr := o.jobs.UpdateProgress(ctx, job.ID, progress, processedItems, doneBatches-failedBatches, failedBatches); perr != nil {
				logger.WarnContext(ctx, "failed to persist progress", "job_id", job.ID, "error", perr)
			}
		}(i, batch)
	}
	wg.Wait()

	return results, processedItems, failedBatches
}

// mapBatch runs one extraction call with retry.
func (o *Orchestrator) mapBatch(ctx context.Context, query string, plan *intent.Plan, batch Batch) (MapResult, error) {
	system := mapSystemPrompt
	if plan.Summary() {
		system = mapSummarySystemPrompt
	}
	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: mapUserPrompt(query, plan, batch)},
	}

	var lastErr error
	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return MapResult{}, ctx.Err()
			case <-time.After(o.cfg.RetryBackoff):
			}
		}

		raw, err := o.completer.Complete(ctx, messages, llm.CompletionParams{
			MaxTokens:   1500,
			Temperature: 0.1,
		})
		if err != nil {
			lastErr = err
			continue
		}

		result, err := parseMapResult(raw, batch.Index, len(batch.Items))
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}
	return MapResult{}, lastErr
}

// synthesize runs the single reduce call.
func (o *Orchestrator) synthesize(ctx context.Context, query string, plan *intent.Plan, summary AggregationSummary, themes, keyPoints []string) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: reduceSystemPrompt},
		{Role: "user", Content: reduceUserPrompt(query, plan, summary, themes, keyPoints)},
	}

	answer, err := o.completer.Complete(ctx, messages, llm.CompletionParams{
		MaxTokens:   1000,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}
	return answer, nil
}

// confidenceScore is 1 minus the failed batch fraction, scaled down when the
// run found little evidence, rounded to two decimals.
func confidenceScore(plan *intent.Plan, summary AggregationSummary, results []MapResult, failedBatches, totalBatches int) float64 {
	if totalBatches == 0 || failedBatches == totalBatches {
		return 0
	}

	confidence := 1.0 - float64(failedBatches)/float64(totalBatches)

	evidence := summary.Count
	if plan.Summary() {
		evidence = 0
		for _, result := range results {
			if result.Relevant {
				evidence += result.ItemCount
			}
		}
	}
	if evidence < 5 {
		confidence *= 0.7
	}

	return math.Round(confidence*100) / 100
}

// fail marks the job failed with the phase it died in, then returns the
// original error for the caller's log.
func (o *Orchestrator) fail(ctx context.Context, job *storage.ProcessingJob, phase string, cause error) error {
	details := map[string]any{"phase": phase}
	if err := o.jobs.MarkFailed(ctx, job.ID, cause.Error(), details); err != nil {
		return fmt.Errorf("failed to mark job failed (%v): %w", cause, err)
	}
	return cause
}

// cancelled re-reads the job and reports whether an external actor cancelled
// it. Cancellation is observed between phases only; in-flight calls finish
// and their results are discarded.
func (o *Orchestrator) cancelled(ctx context.Context, job *storage.ProcessingJob) bool {
	current, err := o.jobs.GetByID(ctx, job.UserID, job.ID)
	if err != nil {
		return false
	}
	return current.Status == storage.JobStatusCancelled
}

func sourceTitles(items []storage.KnowledgeItem) []string {
	titles := make([]string, 0, maxSources)
	for _, item := range items {
		if len(titles) == maxSources {
			break
		}
		titles = append(titles, item.Title)
	}
	return titles
}
