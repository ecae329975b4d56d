package index

import (
	"fmt"
	"os"
	"path/filepath"

	"ragchat/internal/domain"
)

// ReadDocuments loads an upload batch from disk paths. The basename becomes
// the document name, so two paths with the same basename collide.
func ReadDocuments(paths []string) ([]domain.Document, error) {
	batch := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		batch = append(batch, domain.Document{
			Name:    filepath.Base(p),
			Size:    int64(len(content)),
			Path:    p,
			Content: content,
		})
	}
	return batch, nil
}

// StageUploads writes an upload batch into a fresh temporary directory and
// returns its path, ready to be used as the source directory of
// BuildOrUpdate. Document content is not kept once written.
func StageUploads(batch []domain.Document) (string, error) {
	dir, err := os.MkdirTemp("", "ragchat-uploads-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	for _, doc := range batch {
		if err := os.WriteFile(filepath.Join(dir, doc.Name), doc.Content, 0o644); err != nil {
			return "", fmt.Errorf("stage %s: %w", doc.Name, err)
		}
	}
	return dir, nil
}
