package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"recall-ai/internal/handlers"
	"recall-ai/internal/service"
	"recall-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService    *service.ChatService
	SearchService  *service.SearchService
	JobService     *service.JobService
	DB             *sql.DB
	VectorStore    *vectorstore.QdrantStore
	CollectionName string
	IndexHTML      string // Embedded HTML content
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	searchHandler := handlers.NewSearchHandler(deps.SearchService)
	jobsHandler := handlers.NewJobsHandler(deps.JobService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.CollectionName)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/search", searchHandler)
		r.Get("/jobs", jobsHandler.List)
		r.Get("/jobs/{jobID}", jobsHandler.Get)
		r.Delete("/jobs/{jobID}", jobsHandler.Cancel)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	// Serve HTML page at root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(deps.IndexHTML))
	})

	return r
}
