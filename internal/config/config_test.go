package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("DB_PATH", t.TempDir()+"/test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLMModelName != "gpt-4o-mini" {
		t.Errorf("LLMModelName = %v, want gpt-4o-mini", cfg.LLMModelName)
	}
	if cfg.EmbeddingVectorSize != 1536 {
		t.Errorf("EmbeddingVectorSize = %v, want 1536", cfg.EmbeddingVectorSize)
	}
	if cfg.FilterThreshold != 0.3 {
		t.Errorf("FilterThreshold = %v, want 0.3", cfg.FilterThreshold)
	}
	if cfg.BatchTargetChunks != 10 {
		t.Errorf("BatchTargetChunks = %v, want 10", cfg.BatchTargetChunks)
	}
	if cfg.MapConcurrency != 10 {
		t.Errorf("MapConcurrency = %v, want 10", cfg.MapConcurrency)
	}
	if cfg.MapRetryAttempts != 2 {
		t.Errorf("MapRetryAttempts = %v, want 2", cfg.MapRetryAttempts)
	}
	if cfg.JobTimeoutSeconds != 600 {
		t.Errorf("JobTimeoutSeconds = %v, want 600", cfg.JobTimeoutSeconds)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("DB_PATH", t.TempDir()+"/test.db")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for missing LLM_API_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("DB_PATH", t.TempDir()+"/test.db")
	t.Setenv("FILTER_THRESHOLD", "0.5")
	t.Setenv("BATCH_TARGET_CHUNKS", "20")
	t.Setenv("MAP_CONCURRENCY", "4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.FilterThreshold != 0.5 {
		t.Errorf("FilterThreshold = %v, want 0.5", cfg.FilterThreshold)
	}
	if cfg.BatchTargetChunks != 20 {
		t.Errorf("BatchTargetChunks = %v, want 20", cfg.BatchTargetChunks)
	}
	if cfg.MapConcurrency != 4 {
		t.Errorf("MapConcurrency = %v, want 4", cfg.MapConcurrency)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad threshold", "FILTER_THRESHOLD", "1.5"},
		{"non-numeric threshold", "FILTER_THRESHOLD", "high"},
		{"zero concurrency", "MAP_CONCURRENCY", "0"},
		{"non-numeric vector size", "EMBEDDING_VECTOR_SIZE", "big"},
		{"bad log level", "LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LLM_API_KEY", "test-key")
			t.Setenv("DB_PATH", t.TempDir()+"/test.db")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
