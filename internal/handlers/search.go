package handlers

import (
	"encoding/json"
	"net/http"

	"recall-ai/internal/contextutil"
	"recall-ai/internal/service"
)

// SearchHandler handles HTTP requests for direct hybrid search.
type SearchHandler struct {
	search *service.SearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// SearchRequest represents the HTTP request payload for search.
type SearchRequest struct {
	Query          string  `json:"query"`
	Limit          int     `json:"limit,omitempty"`
	SemanticWeight float64 `json:"semantic_weight,omitempty"`
	BM25Weight     float64 `json:"bm25_weight,omitempty"`
}

// SearchResponse represents the HTTP response payload for search.
type SearchResponse struct {
	Results  []service.SearchResultItem `json:"results"`
	Count    int                        `json:"count"`
	Hashtags *service.HashtagInfo       `json:"hashtags,omitempty"`
}

// ServeHTTP handles HTTP requests for search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, hashtags, err := h.search.Search(ctx, userID, service.SearchRequest{
		Query:          req.Query,
		Limit:          req.Limit,
		SemanticWeight: req.SemanticWeight,
		BM25Weight:     req.BM25Weight,
	})
	if err != nil {
		handleServiceError(w, r, err, "Failed to run search")
		return
	}

	if results == nil {
		results = []service.SearchResultItem{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Results:  results,
		Count:    len(results),
		Hashtags: hashtags,
	})
}
