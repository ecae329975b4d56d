package domain

import "context"

// Loader extracts per-page text from a source file. Implementations return
// the extracted page texts in page order.
type Loader interface {
	// Load reads the file at path and returns its page texts. Pages that
	// yield no text are returned as empty strings so callers can decide
	// the skip policy.
	Load(ctx context.Context, path string) ([]string, error)
}

// Chunker splits extracted page text into passages suitable for indexing.
type Chunker interface {
	Chunk(fileName, pageLabel, text string) []Passage
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}
