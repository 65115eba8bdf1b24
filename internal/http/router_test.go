package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"recall-ai/internal/intent"
	"recall-ai/internal/service"
	"recall-ai/internal/service/mocks"
	"recall-ai/internal/storage"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()

	ctrl := gomock.NewController(t)

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}

	folderRepo := storage.NewFolderRepo(db)
	itemRepo := storage.NewItemRepo(db)
	jobRepo := storage.NewJobRepo(db)

	searcher := mocks.NewMockSearcher(ctrl)
	processor := mocks.NewMockQueryProcessor(ctrl)
	completer := mocks.NewMockCompleter(ctrl)

	chatService := service.NewChatService(
		intent.NewHeuristicClassifier(),
		searcher,
		processor,
		completer,
		folderRepo,
		itemRepo,
		jobRepo,
		time.Minute,
	)

	return &Deps{
		ChatService:    chatService,
		SearchService:  service.NewSearchService(searcher, folderRepo),
		JobService:     service.NewJobService(jobRepo),
		DB:             db,
		CollectionName: "test_chunks",
		IndexHTML:      "<html><body>Test</body></html>",
	}
}

func TestNewRouter(t *testing.T) {
	router := NewRouter(testDeps(t))
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(testDeps(t))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "GET root serves HTML",
			method:     http.MethodGet,
			path:       "/",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/v1/chat requires user header",
			method:     http.MethodPost,
			path:       "/api/v1/chat",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /api/v1/chat method not allowed",
			method:     http.MethodGet,
			path:       "/api/v1/chat",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "POST /api/v1/search requires user header",
			method:     http.MethodPost,
			path:       "/api/v1/search",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /api/v1/jobs requires user header",
			method:     http.MethodGet,
			path:       "/api/v1/jobs",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "DELETE /api/v1/jobs/{jobID} requires user header",
			method:     http.MethodDelete,
			path:       "/api/v1/jobs/some-job",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /api/v1/health reports healthy",
			method:     http.MethodGet,
			path:       "/api/v1/health",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_RootServesHTML(t *testing.T) {
	deps := testDeps(t)
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Router GET / status = %v, want %v", w.Code, http.StatusOK)
	}

	if w.Body.String() != deps.IndexHTML {
		t.Errorf("Router GET / body = %v, want %v", w.Body.String(), deps.IndexHTML)
	}

	if w.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("Router GET / Content-Type = %v, want text/html; charset=utf-8", w.Header().Get("Content-Type"))
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router := NewRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Check CORS headers are present
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
