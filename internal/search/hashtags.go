package search

import (
	"context"
	"regexp"
	"strings"

	"recall-ai/internal/storage"
)

var hashtagPattern = regexp.MustCompile(`#([\w-]+)`)

// ParseHashtags extracts #folder tags from a query and returns the query with
// the tags stripped. Tag matching against folder names is case-insensitive,
// so tags are lowercased here.
func ParseHashtags(query string) (clean string, tags []string) {
	matches := hashtagPattern.FindAllStringSubmatch(query, -1)
	for _, match := range matches {
		tags = append(tags, strings.ToLower(match[1]))
	}

	clean = hashtagPattern.ReplaceAllString(query, "")
	clean = strings.Join(strings.Fields(clean), " ")
	return clean, tags
}

// FolderResolution is the outcome of matching hashtags against a user's
// folders.
type FolderResolution struct {
	Folders      []storage.Folder
	Recognized   []string
	Unrecognized []string
}

// FolderIDs returns the IDs of the resolved folders.
func (r *FolderResolution) FolderIDs() []string {
	ids := make([]string, 0, len(r.Folders))
	for _, folder := range r.Folders {
		ids = append(ids, folder.ID)
	}
	return ids
}

// ResolveFolders matches hashtag names against the user's folders. Unknown
// tags are reported back rather than failing the query.
func ResolveFolders(ctx context.Context, store storage.FolderStore, userID string, tags []string) (FolderResolution, error) {
	if len(tags) == 0 {
		return FolderResolution{}, nil
	}

	folders, err := store.GetByNames(ctx, userID, tags)
	if err != nil {
		return FolderResolution{}, err
	}

	known := make(map[string]struct{}, len(folders))
	for _, folder := range folders {
		known[strings.ToLower(folder.Name)] = struct{}{}
	}

	resolution := FolderResolution{Folders: folders}
	for _, tag := range tags {
		if _, ok := known[tag]; ok {
			resolution.Recognized = append(resolution.Recognized, tag)
		} else {
			resolution.Unrecognized = append(resolution.Unrecognized, tag)
		}
	}
	return resolution, nil
}
