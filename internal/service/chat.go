package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_searcher.go -package=mocks recall-ai/internal/service Searcher
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_processor.go -package=mocks recall-ai/internal/service QueryProcessor
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_completer.go -package=mocks recall-ai/internal/service Completer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"recall-ai/internal/contextutil"
	"recall-ai/internal/intent"
	"recall-ai/internal/llm"
	"recall-ai/internal/mapreduce"
	"recall-ai/internal/search"
	"recall-ai/internal/storage"
)

// Quick-path retrieval settings.
const (
	quickSearchLimit    = 10
	quickSemanticWeight = 0.7
	quickBM25Weight     = 0.3
)

// apologyResponse is returned when the quick path's completion call fails.
// Retrieval worked, so the request is not a hard failure.
const apologyResponse = "I'm sorry, I ran into a problem while answering that. Please try again in a moment."

// Searcher is the retriever slice the chat service consumes.
type Searcher interface {
	HybridSearch(ctx context.Context, userID, query string, folderIDs []string, limit int, semanticWeight, bm25Weight float64) ([]search.Result, error)
}

// QueryProcessor runs the async aggregation pipeline.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, job *storage.ProcessingJob, query string, plan *intent.Plan, folderIDs []string) (*mapreduce.QueryResult, error)
}

// Completer is the LLM slice used for quick-path answers.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.CompletionParams) (string, error)
}

// ChatRequest is a chat query in the domain layer.
type ChatRequest struct {
	Message string
}

// HashtagInfo reports how #folder tags in the query were interpreted.
type HashtagInfo struct {
	Detected       []string `json:"detected"`
	Recognized     []string `json:"recognized"`
	Unrecognized   []string `json:"unrecognized"`
	FolderFiltered bool     `json:"folder_filtered"`
}

// ChatResponse is the synchronous reply to a chat query. For async routes the
// answer is an acknowledgement and JobID carries the handle to poll.
type ChatResponse struct {
	Response             string       `json:"response"`
	Intent               string       `json:"intent"`
	Sources              []string     `json:"sources,omitempty"`
	ContextCount         int          `json:"context_count"`
	Async                bool         `json:"async"`
	JobID                string       `json:"job_id,omitempty"`
	EstimatedTimeSeconds float64      `json:"estimated_time_seconds,omitempty"`
	Hashtags             *HashtagInfo `json:"hashtags,omitempty"`
}

// ChatService answers queries over a user's knowledge base, routing each one
// through the quick retrieval path or the async map-reduce path.
type ChatService struct {
	classifier intent.Classifier
	searcher   Searcher
	processor  QueryProcessor
	completer  Completer
	folders    storage.FolderStore
	items      storage.ItemStore
	jobs       storage.JobStore
	jobTimeout time.Duration
}

// NewChatService creates a new ChatService.
func NewChatService(
	classifier intent.Classifier,
	searcher Searcher,
	processor QueryProcessor,
	completer Completer,
	folders storage.FolderStore,
	items storage.ItemStore,
	jobs storage.JobStore,
	jobTimeout time.Duration,
) *ChatService {
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	return &ChatService{
		classifier: classifier,
		searcher:   searcher,
		processor:  processor,
		completer:  completer,
		folders:    folders,
		items:      items,
		jobs:       jobs,
		jobTimeout: jobTimeout,
	}
}

// Chat classifies the query and answers it, either inline or by spawning a
// background job.
func (s *ChatService) Chat(ctx context.Context, userID string, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Message) == "" {
		return ChatResponse{}, &ValidationError{Field: "message", Message: "cannot be empty"}
	}

	cleanQuery, tags := search.ParseHashtags(req.Message)
	if cleanQuery == "" {
		// A pure-hashtag query still means "about this folder".
		cleanQuery = req.Message
	}

	resolution, err := search.ResolveFolders(ctx, s.folders, userID, tags)
	if err != nil {
		return ChatResponse{}, WrapError(err, "failed to resolve folders")
	}
	folderIDs := resolution.FolderIDs()

	var hashtags *HashtagInfo
	if len(tags) > 0 {
		hashtags = &HashtagInfo{
			Detected:       tags,
			Recognized:     resolution.Recognized,
			Unrecognized:   resolution.Unrecognized,
			FolderFiltered: len(folderIDs) > 0,
		}
	}

	counts, err := s.items.CountByFolder(ctx, userID, folderIDs)
	if err != nil {
		return ChatResponse{}, WrapError(err, "failed to count items")
	}

	plan := s.classifier.Classify(ctx, cleanQuery, folderIDs, counts)

	if plan.RequiresAsync && plan.Scan() {
		return s.startJob(ctx, userID, cleanQuery, &plan, folderIDs, hashtags)
	}
	if plan.Scan() {
		// Small corpus: run the pipeline inline on a synchronous job.
		return s.runInlineScan(ctx, userID, cleanQuery, &plan, folderIDs, hashtags)
	}

	logger.InfoContext(ctx, "answering on quick path", "intent", plan.IntentType)
	return s.quickAnswer(ctx, userID, cleanQuery, &plan, folderIDs, resolution, hashtags)
}

// startJob creates a queued job and hands the pipeline to a background
// goroutine bounded by the job timeout.
func (s *ChatService) startJob(ctx context.Context, userID, query string, plan *intent.Plan, folderIDs []string, hashtags *HashtagInfo) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	job := &storage.ProcessingJob{
		ID:                       uuid.NewString(),
		UserID:                   userID,
		JobType:                  plan.IntentType,
		Status:                   storage.JobStatusQueued,
		CurrentPhase:             storage.PhaseInitialization,
		EstimatedDurationSeconds: plan.EstimatedTimeSeconds,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return ChatResponse{}, WrapError(err, "failed to create job")
	}

	logger.InfoContext(ctx, "job queued",
		"job_id", job.ID,
		"intent", plan.IntentType,
		"estimated_items", plan.EstimatedItems,
		"estimated_seconds", plan.EstimatedTimeSeconds)

	go s.runJob(logger.With("job_id", job.ID), job, query, plan, folderIDs)

	ack := fmt.Sprintf(
		"This question needs a scan of about %d items, so I'm processing it in the background (roughly %.0f seconds). Poll the job for the result.",
		plan.EstimatedItems, plan.EstimatedTimeSeconds)

	return ChatResponse{
		Response:             ack,
		Intent:               plan.IntentType,
		Async:                true,
		JobID:                job.ID,
		EstimatedTimeSeconds: plan.EstimatedTimeSeconds,
		Hashtags:             hashtags,
	}, nil
}

// runJob executes the pipeline detached from the request context, under the
// service's job timeout.
func (s *ChatService) runJob(logger *slog.Logger, job *storage.ProcessingJob, query string, plan *intent.Plan, folderIDs []string) {
	ctx, cancel := context.WithTimeout(contextutil.WithLogger(context.Background(), logger), s.jobTimeout)
	defer cancel()

	_, err := s.processor.ProcessQuery(ctx, job, query, plan, folderIDs)
	if err == nil {
		return
	}

	logger.ErrorContext(ctx, "background job failed", "error", err)

	if ctx.Err() != nil {
		// The pipeline died on the deadline; its own failure write may also
		// have failed, so record the timeout on a fresh context.
		message := fmt.Sprintf("job timed out after %.0f seconds", s.jobTimeout.Seconds())
		details := map[string]any{"phase": currentPhase(job, s.jobs)}
		if ferr := s.jobs.MarkFailed(context.Background(), job.ID, message, details); ferr != nil {
			logger.ErrorContext(context.Background(), "failed to record job timeout", "error", ferr)
		}
	}
}

func currentPhase(job *storage.ProcessingJob, jobs storage.JobStore) string {
	current, err := jobs.GetByID(context.Background(), job.UserID, job.ID)
	if err != nil {
		return storage.PhaseInitialization
	}
	return current.CurrentPhase
}

// runInlineScan executes the aggregation pipeline synchronously for corpora
// small enough to finish within the request.
func (s *ChatService) runInlineScan(ctx context.Context, userID, query string, plan *intent.Plan, folderIDs []string, hashtags *HashtagInfo) (ChatResponse, error) {
	job := &storage.ProcessingJob{
		ID:                       uuid.NewString(),
		UserID:                   userID,
		JobType:                  plan.IntentType,
		Status:                   storage.JobStatusQueued,
		CurrentPhase:             storage.PhaseInitialization,
		EstimatedDurationSeconds: plan.EstimatedTimeSeconds,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return ChatResponse{}, WrapError(err, "failed to create job")
	}

	result, err := s.processor.ProcessQuery(ctx, job, query, plan, folderIDs)
	if err != nil {
		return ChatResponse{}, WrapError(err, "aggregation failed")
	}

	return ChatResponse{
		Response:     result.Response,
		Intent:       plan.IntentType,
		Sources:      result.Sources,
		ContextCount: result.ContextCount,
		JobID:        job.ID,
		Hashtags:     hashtags,
	}, nil
}

// quickAnswer retrieves top context and asks the model once.
func (s *ChatService) quickAnswer(ctx context.Context, userID, query string, plan *intent.Plan, folderIDs []string, resolution search.FolderResolution, hashtags *HashtagInfo) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	results, err := s.searcher.HybridSearch(ctx, userID, query, folderIDs, quickSearchLimit, quickSemanticWeight, quickBM25Weight)
	if err != nil {
		return ChatResponse{}, WrapError(err, "search failed")
	}

	messages := []llm.Message{
		{Role: "system", Content: quickSystemPrompt},
		{Role: "user", Content: quickUserPrompt(query, results, resolution)},
	}

	answer, err := s.completer.Complete(ctx, messages, llm.CompletionParams{
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		logger.ErrorContext(ctx, "quick-path completion failed", "error", err)
		answer = apologyResponse
	}

	sources := make([]string, 0, len(results))
	for _, result := range results {
		sources = append(sources, result.Item.Title)
	}

	return ChatResponse{
		Response:     answer,
		Intent:       plan.IntentType,
		Sources:      sources,
		ContextCount: len(results),
		Hashtags:     hashtags,
	}, nil
}

const quickSystemPrompt = `You answer questions from a user's personal knowledge base. Base your answer on the provided documents; when they don't contain the answer, say so plainly instead of guessing.`

// maxQuickContextChars truncates each context document.
const maxQuickContextChars = 2000

func quickUserPrompt(query string, results []search.Result, resolution search.FolderResolution) string {
	var b strings.Builder

	if len(results) == 0 {
		b.WriteString("No matching documents were found in the knowledge base.\n\n")
	} else {
		b.WriteString("Documents from the knowledge base:\n\n")
		for i, result := range results {
			content := result.Item.Content
			if len(content) > maxQuickContextChars {
				content = content[:maxQuickContextChars] + "..."
			}
			fmt.Fprintf(&b, "[Document %d: %s (relevance: %.0f%%)]\n%s\n\n",
				i+1, result.Item.Title, result.HybridScore*100, content)
		}
	}

	if len(resolution.Folders) > 0 {
		names := make([]string, 0, len(resolution.Folders))
		for _, folder := range resolution.Folders {
			names = append(names, folder.Name)
		}
		fmt.Fprintf(&b, "Note: results are limited to the folder(s): %s.\n\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}
