package main

import (
	"context"
	_ "embed"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"recall-ai/internal/config"
	"recall-ai/internal/http"
	"recall-ai/internal/intent"
	"recall-ai/internal/llm"
	"recall-ai/internal/mapreduce"
	"recall-ai/internal/search"
	"recall-ai/internal/service"
	"recall-ai/internal/storage"
	"recall-ai/internal/vectorstore"
)

//go:embed index.html
var indexHTML string

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	folderRepo := storage.NewFolderRepo(db)
	itemRepo := storage.NewItemRepo(db)
	jobRepo := storage.NewJobRepo(db)

	// Initialize Qdrant vector store
	ctx := context.Background()

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbeddingVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	testEmbedding, err := embedder.EmbedText(ctx, "test")
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbedding) != cfg.EmbeddingVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(testEmbedding))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingVectorSize)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Intent classification with keyword fallback
	classifier := intent.NewLLMClassifier(llmClient)

	// Hybrid retriever over Qdrant + BM25
	searcher := search.NewService(embedder, vectorStore, itemRepo, cfg.QdrantCollection)

	// Map-reduce pipeline for aggregation and summary queries
	orchestrator := mapreduce.NewOrchestrator(llmClient, embedder, itemRepo, jobRepo, mapreduce.Config{
		BatchTargetChunks: cfg.BatchTargetChunks,
		Concurrency:       cfg.MapConcurrency,
		RetryAttempts:     cfg.MapRetryAttempts,
		FilterThreshold:   cfg.FilterThreshold,
	})
	slog.Info("Query engine initialized")

	chatService := service.NewChatService(
		classifier,
		searcher,
		orchestrator,
		llmClient,
		folderRepo,
		itemRepo,
		jobRepo,
		time.Duration(cfg.JobTimeoutSeconds)*time.Second,
	)

	// Create router with dependencies
	deps := &http.Deps{
		ChatService:    chatService,
		SearchService:  service.NewSearchService(searcher, folderRepo),
		JobService:     service.NewJobService(jobRepo),
		DB:             db,
		VectorStore:    vectorStore,
		CollectionName: cfg.QdrantCollection,
		IndexHTML:      indexHTML,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
