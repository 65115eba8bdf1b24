package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"recall-ai/internal/intent"
	"recall-ai/internal/service"
	"recall-ai/internal/service/mocks"
	"recall-ai/internal/storage"
)

const testUserID = "user-1"

type testEnv struct {
	db        *sql.DB
	searcher  *mocks.MockSearcher
	processor *mocks.MockQueryProcessor
	completer *mocks.MockCompleter
	folders   *storage.FolderRepo
	jobRepo   *storage.JobRepo
	chat      *service.ChatService
	search    *service.SearchService
	jobs      *service.JobService
}

func newTestEnv(t *testing.T) *testEnv {
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

	return &testEnv{
		db:        db,
		searcher:  searcher,
		processor: processor,
		completer: completer,
		folders:   folderRepo,
		jobRepo:   jobRepo,
		chat: service.NewChatService(
			intent.NewHeuristicClassifier(),
			searcher,
			processor,
			completer,
			folderRepo,
			itemRepo,
			jobRepo,
			time.Minute,
		),
		search: service.NewSearchService(searcher, folderRepo),
		jobs:   service.NewJobService(jobRepo),
	}
}

// withJobID attaches a chi route parameter the way the router would.
func withJobID(req *http.Request, jobID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("jobID", jobID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}
