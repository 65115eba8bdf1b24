package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_folder_store.go -package=mocks recall-ai/internal/storage FolderStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// FolderStore defines the interface for folder read/write operations.
type FolderStore interface {
	// Insert inserts a folder. The folder.ID must be set (UUID).
	Insert(ctx context.Context, folder *Folder) error
	// GetByNames returns the user's folders whose names match any of the given
	// names, case-insensitively. Unknown names are simply absent from the
	// result.
	GetByNames(ctx context.Context, userID string, names []string) ([]Folder, error)
	// ListByUser returns all folders for a user.
	ListByUser(ctx context.Context, userID string) ([]Folder, error)
}

// FolderRepo provides methods for folder operations.
// It implements the FolderStore interface.
type FolderRepo struct {
	db *sql.DB
}

// NewFolderRepo creates a new FolderRepo.
func NewFolderRepo(db *sql.DB) *FolderRepo {
	return &FolderRepo{db: db}
}

// Insert inserts a folder. The folder.ID must be set (UUID).
func (r *FolderRepo) Insert(ctx context.Context, folder *Folder) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO folders (id, user_id, name, path) VALUES (?, ?, ?, ?)",
		folder.ID, folder.UserID, folder.Name, folder.Path,
	)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}

// GetByNames returns the user's folders whose names match any of the given names.
func (r *FolderRepo) GetByNames(ctx context.Context, userID string, names []string) ([]Folder, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(names))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(names)+1)
	args = append(args, userID)
	for _, name := range names {
		args = append(args, name)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, user_id, name, path, created_at FROM folders WHERE user_id = ? AND name COLLATE NOCASE IN (%s)", placeholders),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders by name: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanFolders(rows)
}

// ListByUser returns all folders for a user.
func (r *FolderRepo) ListByUser(ctx context.Context, userID string) ([]Folder, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, path, created_at FROM folders WHERE user_id = ? ORDER BY name",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanFolders(rows)
}

func scanFolders(rows *sql.Rows) ([]Folder, error) {
	var folders []Folder
	for rows.Next() {
		var folder Folder
		if err := rows.Scan(&folder.ID, &folder.UserID, &folder.Name, &folder.Path, &folder.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return folders, nil
}
