package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// ErrNoIndex is returned by Retrieve before any collection has been built.
var ErrNoIndex = errors.New("no index has been built yet")

// Manager owns the authoritative index over one named collection. It decides
// between a full build and an incremental update, keeps already-indexed
// documents from being re-extracted, and tracks a generation counter that
// advances on every change to the passage set. Derived engines compare their
// generation against the manager's to detect staleness.
type Manager struct {
	log        *zap.Logger
	storePath  string
	collection string
	openStore  func(ctx context.Context) (vectorstore.Store, error)
	loader     domain.Loader
	chunker    domain.Chunker
	embedder   domain.Embedder
	onIndexed  func(file string, passages []domain.Passage)

	store      vectorstore.Store
	generation uint64
}

// Options configures a Manager. OpenStore is called lazily, after the
// first-build decision has been made, so that backends which create files on
// open do not flip the decision rule.
type Options struct {
	Log        *zap.Logger
	StorePath  string
	Collection string
	OpenStore  func(ctx context.Context) (vectorstore.Store, error)
	Loader     domain.Loader
	Chunker    domain.Chunker
	Embedder   domain.Embedder

	// OnIndexed, when set, is called with the passages of each newly
	// indexed document. Used by the UI for the ingest summary.
	OnIndexed func(file string, passages []domain.Passage)
}

func NewManager(opts Options) *Manager {
	return &Manager{
		log:        opts.Log,
		storePath:  opts.StorePath,
		collection: opts.Collection,
		openStore:  opts.OpenStore,
		loader:     opts.Loader,
		chunker:    opts.Chunker,
		embedder:   opts.Embedder,
		onIndexed:  opts.OnIndexed,
	}
}

// BuildOrUpdate builds the index from every document in sourceDir when the
// storage path is absent or empty, and otherwise inserts only the documents
// whose filenames are not yet recorded in the collection metadata. It
// returns the number of newly indexed documents.
func (m *Manager) BuildOrUpdate(ctx context.Context, sourceDir string) (int, error) {
	fullBuild := storageEmpty(m.storePath)

	store, err := m.ensureStore(ctx)
	if err != nil {
		return 0, err
	}

	files, err := listFiles(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("list source dir: %w", err)
	}

	if !fullBuild {
		indexed := m.existingFilenames(ctx, store)
		files = NewFilenames(files, indexed)
	}

	// Files can vanish between listing and reading; drop them silently.
	var present []string
	for _, name := range files {
		if _, err := os.Stat(filepath.Join(sourceDir, name)); err == nil {
			present = append(present, name)
		}
	}

	added := 0
	// The generation must advance even when a later document in the batch
	// fails: passages inserted before the error are already part of the
	// collection, and cached chat engines have to notice them.
	defer func() {
		if added > 0 {
			m.generation++
		}
	}()
	for _, name := range present {
		inserted, err := m.indexDocument(ctx, store, sourceDir, name)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	m.log.Info("index up to date",
		zap.String("collection", m.collection),
		zap.Bool("full_build", fullBuild),
		zap.Int("documents_added", added))
	return added, nil
}

// indexDocument extracts, chunks, embeds and inserts one document. A
// document whose pages are all empty is skipped with a warning and reported
// as not inserted.
func (m *Manager) indexDocument(ctx context.Context, store vectorstore.Store, dir, name string) (bool, error) {
	path := filepath.Join(dir, name)
	pages, err := m.loader.Load(ctx, path)
	if err != nil {
		return false, fmt.Errorf("extract %s: %w", name, err)
	}

	var passages []domain.Passage
	for i, text := range pages {
		passages = append(passages, m.chunker.Chunk(name, strconv.Itoa(i+1), text)...)
	}
	if len(passages) == 0 {
		m.log.Warn("empty document skipped", zap.String("file", name))
		return false, nil
	}

	vectors := make([][]float32, len(passages))
	for i, p := range passages {
		vec, err := m.embedder.Embed(ctx, p.Text)
		if err != nil {
			return false, fmt.Errorf("embed passage of %s: %w", name, err)
		}
		vectors[i] = vec
	}
	if err := store.Insert(ctx, passages, vectors); err != nil {
		return false, fmt.Errorf("insert %s: %w", name, err)
	}
	if m.onIndexed != nil {
		m.onIndexed(name, passages)
	}
	return true, nil
}

// Retrieve embeds the query and returns the topK most similar passages.
func (m *Manager) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	if m.store == nil {
		return nil, ErrNoIndex
	}
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return m.store.Search(ctx, vec, topK)
}

// Generation returns a counter that advances whenever the passage set
// changes. Engines built against an older generation are stale.
func (m *Manager) Generation() uint64 { return m.generation }

// ExistingFilenames lists the indexed filenames in sorted order. A metadata
// read failure is absorbed into an empty listing.
func (m *Manager) ExistingFilenames(ctx context.Context) []string {
	if m.store == nil {
		return nil
	}
	names := m.existingFilenames(ctx, m.store)
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	return sorted
}

// Count returns the number of passages in the collection.
func (m *Manager) Count(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}
	return m.store.Count(ctx)
}

// Drop irreversibly removes the collection. On failure the index state is
// left unchanged and the error is surfaced to the caller.
func (m *Manager) Drop(ctx context.Context) error {
	store, err := m.ensureStore(ctx)
	if err != nil {
		return err
	}
	if err := store.Drop(ctx); err != nil {
		return fmt.Errorf("drop collection %s: %w", m.collection, err)
	}
	m.store = nil
	m.generation++
	m.log.Info("collection dropped", zap.String("collection", m.collection))
	return nil
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}

func (m *Manager) ensureStore(ctx context.Context) (vectorstore.Store, error) {
	if m.store != nil {
		return m.store, nil
	}
	store, err := m.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", m.collection, err)
	}
	m.store = store
	return store, nil
}

// existingFilenames reads the collection metadata, treating a read failure
// as "nothing indexed yet". That is conservative: it can cause re-indexing
// but never data loss.
func (m *Manager) existingFilenames(ctx context.Context, store vectorstore.Store) map[string]struct{} {
	names, err := store.Filenames(ctx)
	if err != nil {
		m.log.Warn("metadata read failed, assuming empty collection",
			zap.String("collection", m.collection), zap.Error(err))
		return map[string]struct{}{}
	}
	return names
}

// storageEmpty reports whether the storage path is absent or holds no
// entries. This is the sole signal distinguishing a first build from an
// incremental update.
func storageEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return true
	}
	return len(entries) == 0
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
