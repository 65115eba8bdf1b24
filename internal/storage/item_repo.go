package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_item_store.go -package=mocks recall-ai/internal/storage ItemStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// ItemStore defines the interface for knowledge item read/write operations.
// The ingestion pipeline is the writer; the query engine only reads.
type ItemStore interface {
	// Insert inserts an item. The item.ID must be set (UUID).
	Insert(ctx context.Context, item *KnowledgeItem) error
	// InsertChunk inserts a chunk for an item. The chunk.ID must be set (UUID).
	InsertChunk(ctx context.Context, chunk *Chunk) error
	// ListCompletedWithChunks returns the user's completed items with their
	// chunks loaded in chunk-index order, newest items first. An empty
	// folderIDs slice means all folders.
	ListCompletedWithChunks(ctx context.Context, userID string, folderIDs []string) ([]KnowledgeItem, error)
	// GetByIDs returns the user's items matching the given IDs, without chunks.
	GetByIDs(ctx context.Context, userID string, ids []string) ([]KnowledgeItem, error)
	// CountByFolder returns per-folder completed item counts for the user.
	// An empty folderIDs slice means all folders.
	CountByFolder(ctx context.Context, userID string, folderIDs []string) (map[string]int, error)
}

// ItemRepo provides methods for knowledge item operations.
// It implements the ItemStore interface.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo creates a new ItemRepo.
func NewItemRepo(db *sql.DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// Insert inserts an item. The item.ID must be set (UUID).
func (r *ItemRepo) Insert(ctx context.Context, item *KnowledgeItem) error {
	metadata, err := marshalJSONColumn(item.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal item metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO knowledge_items
			(id, user_id, folder_id, title, content, content_type, source_url, processing_status, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.FolderID, item.Title, item.Content,
		item.ContentType, item.SourceURL, item.ProcessingStatus, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// InsertChunk inserts a chunk for an item. The chunk.ID must be set (UUID).
func (r *ItemRepo) InsertChunk(ctx context.Context, chunk *Chunk) error {
	var embedding any
	if len(chunk.Embedding) > 0 {
		raw, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		embedding = string(raw)
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chunks (id, item_id, chunk_index, embedding, content_preview) VALUES (?, ?, ?, ?, ?)",
		chunk.ID, chunk.ItemID, chunk.ChunkIndex, embedding, chunk.ContentPreview,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// ListCompletedWithChunks returns the user's completed items with their chunks
// loaded in chunk-index order, newest items first.
func (r *ItemRepo) ListCompletedWithChunks(ctx context.Context, userID string, folderIDs []string) ([]KnowledgeItem, error) {
	query := `SELECT id, user_id, folder_id, title, content, content_type,
			COALESCE(source_url, ''), processing_status, metadata, created_at
		FROM knowledge_items
		WHERE user_id = ? AND processing_status = ?`
	args := []any{userID, ItemStatusCompleted}

	if len(folderIDs) > 0 {
		query += fmt.Sprintf(" AND folder_id IN (%s)", placeholders(len(folderIDs)))
		for _, id := range folderIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	byID := make(map[string]*KnowledgeItem, len(items))
	ids := make([]string, 0, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
		ids = append(ids, items[i].ID)
	}

	if err := r.loadChunks(ctx, ids, byID); err != nil {
		return nil, err
	}

	return items, nil
}

// GetByIDs returns the user's items matching the given IDs, without chunks.
func (r *ItemRepo) GetByIDs(ctx context.Context, userID string, ids []string) ([]KnowledgeItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := []any{userID}
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, user_id, folder_id, title, content, content_type,
				COALESCE(source_url, ''), processing_status, metadata, created_at
			FROM knowledge_items WHERE user_id = ? AND id IN (%s)`, placeholders(len(ids))),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query items by id: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanItems(rows)
}

// CountByFolder returns per-folder completed item counts for the user.
func (r *ItemRepo) CountByFolder(ctx context.Context, userID string, folderIDs []string) (map[string]int, error) {
	query := `SELECT folder_id, COUNT(*) FROM knowledge_items
		WHERE user_id = ? AND processing_status = ?`
	args := []any{userID, ItemStatusCompleted}

	if len(folderIDs) > 0 {
		query += fmt.Sprintf(" AND folder_id IN (%s)", placeholders(len(folderIDs)))
		for _, id := range folderIDs {
			args = append(args, id)
		}
	}
	query += " GROUP BY folder_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var folderID string
		var count int
		if err := rows.Scan(&folderID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan item count: %w", err)
		}
		counts[folderID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

// loadChunks attaches chunks (in index order) to the given items.
func (r *ItemRepo) loadChunks(ctx context.Context, itemIDs []string, byID map[string]*KnowledgeItem) error {
	args := make([]any, 0, len(itemIDs))
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, item_id, chunk_index, embedding, content_preview, created_at
			FROM chunks WHERE item_id IN (%s) ORDER BY item_id, chunk_index`, placeholders(len(itemIDs))),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var chunk Chunk
		var embedding sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.ItemID, &chunk.ChunkIndex, &embedding, &chunk.ContentPreview, &chunk.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan chunk: %w", err)
		}
		if embedding.Valid && embedding.String != "" {
			if err := json.Unmarshal([]byte(embedding.String), &chunk.Embedding); err != nil {
				return fmt.Errorf("failed to unmarshal embedding for chunk %s: %w", chunk.ID, err)
			}
		}
		if item, ok := byID[chunk.ItemID]; ok {
			item.Chunks = append(item.Chunks, chunk)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]KnowledgeItem, error) {
	var items []KnowledgeItem
	for rows.Next() {
		var item KnowledgeItem
		var metadata sql.NullString
		if err := rows.Scan(&item.ID, &item.UserID, &item.FolderID, &item.Title, &item.Content,
			&item.ContentType, &item.SourceURL, &item.ProcessingStatus, &metadata, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &item.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for item %s: %w", item.ID, err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func marshalJSONColumn(value map[string]any) (any, error) {
	if len(value) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
