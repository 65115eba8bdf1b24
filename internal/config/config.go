package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL          string
	LLMModelName        string
	LLMAPIKey           string
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int
	DBPath              string
	QdrantURL           string
	QdrantCollection    string
	APIPort             string
	LogLevel            slog.Level
	LogFormat           string

	// Engine tunables. The defaults match the reference deployment; they are
	// configuration rather than validated thresholds.
	FilterThreshold   float64 // semantic pre-filter relevance cutoff
	BatchTargetChunks int     // target chunk count per map batch
	MapConcurrency    int     // max concurrent map calls
	MapRetryAttempts  int     // attempts per batch (including the first)
	JobTimeoutSeconds int     // hard ceiling for a whole map-reduce job
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Try to find project root by looking for a .env next to go.mod
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		DBPath:             getEnv("DB_PATH", "./data/recall-ai.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "knowledge_chunks"),
		APIPort:            getEnv("API_PORT", "8000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// The embedding dimension must match what the ingestion pipeline stored.
	// 1536 is the dimension of the reference embedding model.
	cfg.EmbeddingVectorSize, err = getEnvInt("EMBEDDING_VECTOR_SIZE", 1536)
	if err != nil {
		return nil, err
	}
	if cfg.EmbeddingVectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}

	cfg.FilterThreshold, err = getEnvFloat("FILTER_THRESHOLD", 0.3)
	if err != nil {
		return nil, err
	}
	if cfg.FilterThreshold < 0 || cfg.FilterThreshold > 1 {
		return nil, fmt.Errorf("FILTER_THRESHOLD must be in [0,1]")
	}

	cfg.BatchTargetChunks, err = getEnvInt("BATCH_TARGET_CHUNKS", 10)
	if err != nil {
		return nil, err
	}
	cfg.MapConcurrency, err = getEnvInt("MAP_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}
	cfg.MapRetryAttempts, err = getEnvInt("MAP_RETRY_ATTEMPTS", 2)
	if err != nil {
		return nil, err
	}
	cfg.JobTimeoutSeconds, err = getEnvInt("JOB_TIMEOUT_SECONDS", 600)
	if err != nil {
		return nil, err
	}
	if cfg.BatchTargetChunks <= 0 || cfg.MapConcurrency <= 0 || cfg.MapRetryAttempts <= 0 || cfg.JobTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("engine tunables must be greater than 0")
	}

	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	// Create the data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return value, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return value, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL: %s", raw)
	}
}
