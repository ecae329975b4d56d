package vectorstore

import (
	"context"

	"ragchat/internal/domain"
)

// Store is a named, persisted collection of passages with their vector
// embeddings. Insert appends and never replaces; Drop irreversibly removes
// the whole collection including any on-disk data.
type Store interface {
	// Exists reports whether the collection has been created.
	Exists(ctx context.Context) (bool, error)

	// Filenames returns the distinct file_name metadata values of all
	// stored passages. Records without the field are skipped.
	Filenames(ctx context.Context) (map[string]struct{}, error)

	// Insert appends passages with their vectors to the collection.
	Insert(ctx context.Context, passages []domain.Passage, vectors [][]float32) error

	// Search returns the topK most similar passages to the given vector,
	// most similar first.
	Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedPassage, error)

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// Drop removes the entire collection. There is no partial delete.
	Drop(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
