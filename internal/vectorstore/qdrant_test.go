package vectorstore

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

// TestNewQdrantStore_URLParsing tests URL parsing logic without creating a real client.
func TestNewQdrantStore_URLParsing(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantHost string
		wantPort int
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://localhost:9000",
			wantHost: "localhost",
			wantPort: 9001,
		},
		{
			name:     "URL without port",
			urlStr:   "http://qdrant.internal",
			wantHost: "qdrant.internal",
			wantPort: 6334,
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost",
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsedURL, err := url.Parse(tt.urlStr)
			if err != nil {
				t.Fatalf("Failed to parse URL: %v", err)
			}

			host := parsedURL.Hostname()
			if host == "" {
				host = "localhost"
			}

			port := 6334
			if parsedURL.Port() != "" {
				if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
					port = httpPort + 1
				}
			}

			if host != tt.wantHost {
				t.Errorf("Host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("Port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	store := &QdrantStore{}

	// Should return early before touching the client.
	err := store.Upsert(context.Background(), "test-collection", []Point{})
	if err != nil {
		t.Errorf("Upsert() with empty points should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Delete_EmptyIDs(t *testing.T) {
	store := &QdrantStore{}

	err := store.Delete(context.Background(), "test-collection", []string{})
	if err != nil {
		t.Errorf("Delete() with empty IDs should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Search_InvalidK(t *testing.T) {
	store := &QdrantStore{}

	ctx := context.Background()
	if _, err := store.Search(ctx, "test-collection", []float32{1.0, 2.0}, 0, nil); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search(ctx, "test-collection", []float32{1.0, 2.0}, -1, nil); err == nil {
		t.Error("Search() with k=-1 should return error")
	}
}

func TestBuildFilter(t *testing.T) {
	ctx := context.Background()

	if f := buildFilter(ctx, nil); f != nil {
		t.Errorf("buildFilter(nil) = %v, want nil", f)
	}

	f := buildFilter(ctx, map[string]any{
		"user_id":    "user-1",
		"folder_ids": []string{"f1", "f2"},
	})
	if f == nil {
		t.Fatal("buildFilter() returned nil for valid filters")
	}
	if len(f.Must) != 2 {
		t.Errorf("buildFilter() produced %d conditions, want 2", len(f.Must))
	}

	// Empty folder list means all folders: no condition.
	f = buildFilter(ctx, map[string]any{
		"user_id":    "user-1",
		"folder_ids": []string{},
	})
	if f == nil || len(f.Must) != 1 {
		t.Errorf("buildFilter() with empty folder_ids should keep only the user condition")
	}

	// Wrong types are skipped rather than silently matching everything.
	f = buildFilter(ctx, map[string]any{
		"user_id":    42,
		"folder_ids": "not-a-slice",
	})
	if f != nil {
		t.Errorf("buildFilter() with invalid types = %v, want nil", f)
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil {
		t.Error("convertPayloadToMap() should return empty map, not nil")
	}
	if len(result) != 0 {
		t.Errorf("convertPayloadToMap() with nil should return empty map, got %d items", len(result))
	}

	payload := map[string]*qdrant.Value{
		"item_id":     {Kind: &qdrant.Value_StringValue{StringValue: "abc"}},
		"chunk_index": {Kind: &qdrant.Value_IntegerValue{IntegerValue: 2}},
		"nil_value":   nil,
	}
	result = convertPayloadToMap(payload)
	if result["item_id"] != "abc" {
		t.Errorf("item_id = %v, want abc", result["item_id"])
	}
	if result["chunk_index"] != int64(2) {
		t.Errorf("chunk_index = %v, want 2", result["chunk_index"])
	}
	if _, ok := result["nil_value"]; ok {
		t.Error("nil values should be dropped")
	}
}
