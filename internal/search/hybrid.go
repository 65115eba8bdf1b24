package search

import (
	"context"
	"sort"

	"recall-ai/internal/contextutil"
	"recall-ai/internal/storage"
	"recall-ai/internal/vectorstore"
)

// DefaultHybridLimit is how many results a hybrid search returns when the
// caller does not ask for a specific count.
const DefaultHybridLimit = 5

// candidatePoolFactor oversamples the semantic pass relative to the requested
// limit so BM25 has a meaningful corpus to rank over.
const candidatePoolFactor = 4

// Embedder is the slice of the embeddings client the retriever consumes.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Result is a scored knowledge item. Scores are only meaningful relative to
// each other within one search.
type Result struct {
	Item          storage.KnowledgeItem
	SemanticScore float64
	BM25Score     float64
	HybridScore   float64
}

// Service ranks a user's knowledge items against a query by blending semantic
// similarity with lexical BM25 relevance.
type Service struct {
	embedder   Embedder
	vectors    vectorstore.VectorStore
	items      storage.ItemStore
	collection string
}

// NewService creates a new search Service.
func NewService(embedder Embedder, vectors vectorstore.VectorStore, items storage.ItemStore, collection string) *Service {
	return &Service{
		embedder:   embedder,
		vectors:    vectors,
		items:      items,
		collection: collection,
	}
}

// HybridSearch returns the user's best-matching items for the query, scoped
// to the given folders (empty means all). An embedding or vector store
// failure degrades to an empty result set with a logged warning rather than
// an error: a query with no retrieved context is still answerable.
func (s *Service) HybridSearch(ctx context.Context, userID, query string, folderIDs []string, limit int, semanticWeight, bm25Weight float64) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		limit = DefaultHybridLimit
	}

	queryVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		logger.WarnContext(ctx, "query embedding failed, returning no results", "error", err)
		return nil, nil
	}

	filters := map[string]any{"user_id": userID}
	if len(folderIDs) > 0 {
		filters["folder_ids"] = folderIDs
	}

	hits, err := s.vectors.Search(ctx, s.collection, queryVec, limit*candidatePoolFactor, filters)
	if err != nil {
		logger.WarnContext(ctx, "vector search failed, returning no results", "error", err)
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	// Dedupe chunk hits to items, keeping each item's best chunk score and
	// the order in which items first appeared (best chunk first).
	semScores := make(map[string]float64, len(hits))
	itemIDs := make([]string, 0, len(hits))
	for _, hit := range hits {
		itemID, ok := hit.Meta["item_id"].(string)
		if !ok || itemID == "" {
			continue
		}
		score := float64(hit.Score)
		if prev, seen := semScores[itemID]; seen {
			if score > prev {
				semScores[itemID] = score
			}
			continue
		}
		semScores[itemID] = score
		itemIDs = append(itemIDs, itemID)
	}
	if len(itemIDs) == 0 {
		return nil, nil
	}

	items, err := s.items.GetByIDs(ctx, userID, itemIDs)
	if err != nil {
		return nil, err
	}

	// Preserve semantic ordering of the candidate set.
	byID := make(map[string]storage.KnowledgeItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	candidates := make([]storage.KnowledgeItem, 0, len(items))
	for _, id := range itemIDs {
		if item, ok := byID[id]; ok {
			candidates = append(candidates, item)
		}
	}

	results := rank(query, candidates, semScores, semanticWeight, bm25Weight)

	if len(results) > limit {
		results = results[:limit]
	}
	logger.InfoContext(ctx, "hybrid search completed",
		"query_length", len(query),
		"candidates", len(candidates),
		"results", len(results))
	return results, nil
}

// rank blends normalized semantic and BM25 scores over the candidate slice.
// An empty tokenized query skips the BM25 contribution entirely.
func rank(query string, candidates []storage.KnowledgeItem, semScores map[string]float64, semanticWeight, bm25Weight float64) []Result {
	if len(candidates) == 0 {
		return nil
	}

	queryTokens := Tokenize(query)

	bm25Scores := make([]float64, len(candidates))
	if len(queryTokens) > 0 {
		documents := make([]string, len(candidates))
		for i, item := range candidates {
			documents[i] = item.Title + " " + item.Content
		}
		corpus := newBM25Corpus(documents)
		for i := range candidates {
			bm25Scores[i] = corpus.score(i, queryTokens)
		}
	}

	var maxSem, maxBM25 float64
	for i, item := range candidates {
		if s := semScores[item.ID]; s > maxSem {
			maxSem = s
		}
		if bm25Scores[i] > maxBM25 {
			maxBM25 = bm25Scores[i]
		}
	}

	results := make([]Result, len(candidates))
	for i, item := range candidates {
		r := Result{
			Item:          item,
			SemanticScore: semScores[item.ID],
			BM25Score:     bm25Scores[i],
		}

		var normSem, normBM25 float64
		if maxSem > 0 {
			normSem = r.SemanticScore / maxSem
		}
		if maxBM25 > 0 {
			normBM25 = r.BM25Score / maxBM25
		}

		if len(queryTokens) == 0 {
			r.HybridScore = normSem
		} else {
			r.HybridScore = semanticWeight*normSem + bm25Weight*normBM25
		}
		results[i] = r
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].HybridScore > results[j].HybridScore
	})
	return results
}
