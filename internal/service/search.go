package service

import (
	"context"
	"strings"

	"recall-ai/internal/search"
	"recall-ai/internal/storage"
)

// SearchRequest is a direct hybrid search in the domain layer. Zero weights
// fall back to the 0.7/0.3 hybrid default.
type SearchRequest struct {
	Query          string
	Limit          int
	SemanticWeight float64
	BM25Weight     float64
}

// SearchResultItem is one scored hit, shaped for the HTTP layer.
type SearchResultItem struct {
	ItemID        string  `json:"item_id"`
	Title         string  `json:"title"`
	Preview       string  `json:"preview"`
	FolderID      string  `json:"folder_id"`
	HybridScore   float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score"`
	BM25Score     float64 `json:"bm25_score"`
}

// previewChars bounds the content excerpt returned per hit.
const previewChars = 200

// SearchService exposes the hybrid retriever directly.
type SearchService struct {
	searcher Searcher
	folders  storage.FolderStore
}

// NewSearchService creates a new SearchService.
func NewSearchService(searcher Searcher, folders storage.FolderStore) *SearchService {
	return &SearchService{searcher: searcher, folders: folders}
}

// Search runs a hybrid search for the user, honoring #folder tags in the
// query the same way chat does.
func (s *SearchService) Search(ctx context.Context, userID string, req SearchRequest) ([]SearchResultItem, *HashtagInfo, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, nil, &ValidationError{Field: "query", Message: "cannot be empty"}
	}

	cleanQuery, tags := search.ParseHashtags(req.Query)
	if cleanQuery == "" {
		cleanQuery = req.Query
	}

	resolution, err := search.ResolveFolders(ctx, s.folders, userID, tags)
	if err != nil {
		return nil, nil, WrapError(err, "failed to resolve folders")
	}

	var hashtags *HashtagInfo
	if len(tags) > 0 {
		hashtags = &HashtagInfo{
			Detected:       tags,
			Recognized:     resolution.Recognized,
			Unrecognized:   resolution.Unrecognized,
			FolderFiltered: len(resolution.Folders) > 0,
		}
	}

	semanticWeight, bm25Weight := req.SemanticWeight, req.BM25Weight
	if semanticWeight == 0 && bm25Weight == 0 {
		semanticWeight, bm25Weight = quickSemanticWeight, quickBM25Weight
	}

	results, err := s.searcher.HybridSearch(ctx, userID, cleanQuery, resolution.FolderIDs(), req.Limit, semanticWeight, bm25Weight)
	if err != nil {
		return nil, hashtags, WrapError(err, "search failed")
	}

	items := make([]SearchResultItem, 0, len(results))
	for _, result := range results {
		preview := result.Item.Content
		if len(preview) > previewChars {
			preview = preview[:previewChars] + "..."
		}
		items = append(items, SearchResultItem{
			ItemID:        result.Item.ID,
			Title:         result.Item.Title,
			Preview:       preview,
			FolderID:      result.Item.FolderID,
			HybridScore:   result.HybridScore,
			SemanticScore: result.SemanticScore,
			BM25Score:     result.BM25Score,
		})
	}
	return items, hashtags, nil
}
